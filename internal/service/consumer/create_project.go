package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"jfrhub/internal/model"
	storemodel "jfrhub/pkg/store/mysql/model"

	"github.com/google/uuid"
)

// createProjectConsumer applies PROJECT_CREATED events. Replays are no-ops:
// the project row is keyed by its origin identifier.
type createProjectConsumer struct {
	projects ProjectStore
}

func (c *createProjectConsumer) Name() string {
	return "create-project"
}

func (c *createProjectConsumer) IsApplicable(event *storemodel.WorkspaceEvent) bool {
	return event.EventType == string(model.EventProjectCreated)
}

func (c *createProjectConsumer) Process(ctx context.Context, event *storemodel.WorkspaceEvent) error {
	var content model.ProjectCreatedContent
	if err := json.Unmarshal([]byte(event.Payload), &content); err != nil {
		return fmt.Errorf("invalid PROJECT_CREATED payload: %w", err)
	}

	project := &storemodel.Project{
		ID:              uuid.NewString(),
		WorkspaceID:     event.WorkspaceID,
		OriginProjectID: event.ProjectID,
		Name:            content.ProjectName,
		Label:           content.ProjectLabel,
		RelativePath:    content.RelativeProjectPath,
		CreatedAt:       time.Now(),
	}
	_, err := c.projects.CreateIfAbsent(ctx, project)
	return err
}
