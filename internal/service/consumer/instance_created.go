package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"jfrhub/internal/model"
	storemodel "jfrhub/pkg/store/mysql/model"
)

// instanceCreatedConsumer applies INSTANCE_CREATED events
type instanceCreatedConsumer struct {
	instances InstanceStore
}

func (c *instanceCreatedConsumer) Name() string {
	return "instance-created"
}

func (c *instanceCreatedConsumer) IsApplicable(event *storemodel.WorkspaceEvent) bool {
	return event.EventType == string(model.EventInstanceCreated)
}

func (c *instanceCreatedConsumer) Process(ctx context.Context, event *storemodel.WorkspaceEvent) error {
	var content model.InstanceCreatedContent
	if err := json.Unmarshal([]byte(event.Payload), &content); err != nil {
		return fmt.Errorf("invalid INSTANCE_CREATED payload: %w", err)
	}

	instance := &storemodel.ProjectInstance{
		ID:        content.InstanceID,
		ProjectID: event.ProjectID,
		CreatedAt: time.Now(),
	}
	_, err := c.instances.CreateIfAbsent(ctx, instance)
	return err
}
