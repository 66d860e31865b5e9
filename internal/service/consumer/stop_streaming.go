package consumer

import (
	"context"
	"encoding/json"

	"jfrhub/internal/model"
	storemodel "jfrhub/pkg/store/mysql/model"
)

// stopStreamingConsumer applies STREAMING_STOPPED and SESSION_FINISHED
// events. Both end the referenced session; when that was the instance's last
// active session the instance finishes with it.
type stopStreamingConsumer struct {
	sessions  SessionStore
	instances InstanceStore
}

func (c *stopStreamingConsumer) Name() string {
	return "stop-streaming"
}

func (c *stopStreamingConsumer) IsApplicable(event *storemodel.WorkspaceEvent) bool {
	return event.EventType == string(model.EventStreamingStopped) ||
		event.EventType == string(model.EventSessionFinished)
}

func (c *stopStreamingConsumer) Process(ctx context.Context, event *storemodel.WorkspaceEvent) error {
	finishedAt := event.OriginCreatedAt
	var content model.SessionFinishedContent
	if err := json.Unmarshal([]byte(event.Payload), &content); err == nil && !content.FinishedAt.IsZero() {
		finishedAt = content.FinishedAt
	}

	session, err := c.sessions.Get(ctx, event.SessionID)
	if err != nil {
		return err
	}
	if session == nil {
		// Already deleted; replayed finish events stay no-ops.
		return nil
	}
	return finishSession(ctx, c.sessions, c.instances, session.ID, session.InstanceID, finishedAt)
}
