package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"jfrhub/internal/model"
	storemodel "jfrhub/pkg/store/mysql/model"
)

// createSessionConsumer applies SESSION_CREATED events. A new session of an
// instance implicitly ends any session of that instance still marked active:
// a JVM records at most one session at a time, so a predecessor without an
// explicit finish event is closed with the successor's start time.
type createSessionConsumer struct {
	sessions  SessionStore
	instances InstanceStore
}

func (c *createSessionConsumer) Name() string {
	return "create-session"
}

func (c *createSessionConsumer) IsApplicable(event *storemodel.WorkspaceEvent) bool {
	return event.EventType == string(model.EventSessionCreated)
}

func (c *createSessionConsumer) Process(ctx context.Context, event *storemodel.WorkspaceEvent) error {
	var content model.SessionCreatedContent
	if err := json.Unmarshal([]byte(event.Payload), &content); err != nil {
		return fmt.Errorf("invalid SESSION_CREATED payload: %w", err)
	}

	unfinished, err := c.sessions.FindUnfinishedByInstance(ctx, content.InstanceID)
	if err != nil {
		return err
	}
	for _, session := range unfinished {
		if session.ID == event.SessionID {
			continue
		}
		if _, err := c.sessions.MarkFinished(ctx, session.ID, event.OriginCreatedAt); err != nil {
			return err
		}
	}

	session := &storemodel.RecordingSession{
		ID:                  event.SessionID,
		ProjectID:           event.ProjectID,
		InstanceID:          content.InstanceID,
		OrderNum:            content.Order,
		RelativeSessionPath: content.RelativeSessionPath,
		ProfilerSettings:    content.ProfilerSettings,
		DetectionFile:       content.DetectionFile,
		OriginCreatedAt:     event.OriginCreatedAt,
		CreatedAt:           time.Now(),
	}
	_, err = c.sessions.CreateIfAbsent(ctx, session)
	return err
}
