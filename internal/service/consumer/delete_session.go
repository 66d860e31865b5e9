package consumer

import (
	"context"
	"fmt"

	"jfrhub/internal/model"
	storemodel "jfrhub/pkg/store/mysql/model"
)

// deleteSessionConsumer applies SESSION_DELETED events. Both manual deletion
// and the retention job route through this single path, so repository
// directory and database row always go together. Files go first: a crash
// between the two replays the event and retries the (idempotent) removal.
type deleteSessionConsumer struct {
	sessions SessionStore
	files    SessionFiles
}

func (c *deleteSessionConsumer) Name() string {
	return "delete-session"
}

func (c *deleteSessionConsumer) IsApplicable(event *storemodel.WorkspaceEvent) bool {
	return event.EventType == string(model.EventSessionDeleted)
}

func (c *deleteSessionConsumer) Process(ctx context.Context, event *storemodel.WorkspaceEvent) error {
	if err := c.files.DeleteSession(ctx, event.SessionID); err != nil {
		return fmt.Errorf("failed to delete session files: %w", err)
	}
	return c.sessions.Delete(ctx, event.SessionID)
}
