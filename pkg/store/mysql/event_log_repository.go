package mysql

import (
	"context"
	"fmt"
	"time"

	"jfrhub/pkg/store/mysql/model"

	"gorm.io/gorm/clause"
)

// EventLogRepository durable append-only workspace event log. Offsets are the
// auto-increment row IDs, monotonically increasing across all workspaces and
// therefore strictly increasing within each one.
type EventLogRepository struct {
	ds *Datastore
}

// NewEventLogRepository creates a new event log repository
func NewEventLogRepository(ds *Datastore) *EventLogRepository {
	return &EventLogRepository{ds: ds}
}

// Append appends a single event. A duplicate dedup key is silently skipped.
func (r *EventLogRepository) Append(ctx context.Context, event *model.WorkspaceEvent) error {
	return r.ds.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error
}

// AppendBatch appends events in order and returns the number actually
// inserted. Events whose dedup key already exists are skipped, which makes
// at-least-once replication safe to replay.
func (r *EventLogRepository) AppendBatch(ctx context.Context, events []*model.WorkspaceEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	result := r.ds.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&events)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to append event batch: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ReadFrom returns all events of a workspace with ID greater than the given
// offset, ordered ascending.
func (r *EventLogRepository) ReadFrom(ctx context.Context, workspaceID string, afterOffset int64) ([]*model.WorkspaceEvent, error) {
	var events []*model.WorkspaceEvent
	err := r.ds.DB(ctx).
		Where("workspace_id = ? AND id > ?", workspaceID, afterOffset).
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read events from offset: %w", err)
	}
	return events, nil
}

// ListByWorkspace returns the newest events of a workspace, newest first.
func (r *EventLogRepository) ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]*model.WorkspaceEvent, error) {
	var events []*model.WorkspaceEvent
	query := r.ds.DB(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&events).Error
	return events, err
}

// latestEventPerWorkspace is wrapped in a derived table because MySQL rejects
// a DELETE whose subquery reads the table being deleted from (error 1093).
// In-memory fakes accept the naive form, so keep this raw and MySQL-shaped.
const latestEventPerWorkspace = "id NOT IN (SELECT id FROM (" +
	"SELECT MAX(id) AS id FROM workspace_events GROUP BY workspace_id" +
	") AS latest_events)"

// DeleteOlderThan deletes events created before the cutoff, keeping the most
// recent event of every workspace so the log never becomes empty.
func (r *EventLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.ds.DB(ctx).
		Where("created_at < ?", cutoff).
		Where(latestEventPerWorkspace).
		Delete(&model.WorkspaceEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
