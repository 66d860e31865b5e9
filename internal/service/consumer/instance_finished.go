package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"jfrhub/internal/model"
	storemodel "jfrhub/pkg/store/mysql/model"
)

// instanceFinishedConsumer applies INSTANCE_FINISHED events. The instance's
// remaining active sessions are closed with the instance: a dead JVM records
// nothing further.
type instanceFinishedConsumer struct {
	instances InstanceStore
	sessions  SessionStore
}

func (c *instanceFinishedConsumer) Name() string {
	return "instance-finished"
}

func (c *instanceFinishedConsumer) IsApplicable(event *storemodel.WorkspaceEvent) bool {
	return event.EventType == string(model.EventInstanceFinished)
}

func (c *instanceFinishedConsumer) Process(ctx context.Context, event *storemodel.WorkspaceEvent) error {
	var content model.InstanceFinishedContent
	if err := json.Unmarshal([]byte(event.Payload), &content); err != nil {
		return fmt.Errorf("invalid INSTANCE_FINISHED payload: %w", err)
	}

	unfinished, err := c.sessions.FindUnfinishedByInstance(ctx, content.InstanceID)
	if err != nil {
		return err
	}
	for _, session := range unfinished {
		if _, err := c.sessions.MarkFinished(ctx, session.ID, event.OriginCreatedAt); err != nil {
			return err
		}
	}
	return c.instances.MarkFinished(ctx, content.InstanceID, event.OriginCreatedAt)
}
