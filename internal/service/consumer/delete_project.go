package consumer

import (
	"context"
	"fmt"

	"jfrhub/internal/model"
	storemodel "jfrhub/pkg/store/mysql/model"
)

// deleteProjectConsumer applies PROJECT_DELETED events, removing the
// project's sessions (files and rows) before the project row itself.
type deleteProjectConsumer struct {
	projects ProjectStore
	sessions SessionStore
	files    SessionFiles
}

func (c *deleteProjectConsumer) Name() string {
	return "delete-project"
}

func (c *deleteProjectConsumer) IsApplicable(event *storemodel.WorkspaceEvent) bool {
	return event.EventType == string(model.EventProjectDeleted)
}

func (c *deleteProjectConsumer) Process(ctx context.Context, event *storemodel.WorkspaceEvent) error {
	sessions, err := c.sessions.ListByProject(ctx, event.ProjectID)
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if err := c.files.DeleteSession(ctx, session.ID); err != nil {
			return fmt.Errorf("failed to delete session files: %w", err)
		}
	}
	if err := c.sessions.DeleteByProject(ctx, event.ProjectID); err != nil {
		return err
	}
	return c.projects.Delete(ctx, event.ProjectID)
}
