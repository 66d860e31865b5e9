package mysql

import (
	"context"
	"fmt"
	"time"

	"jfrhub/pkg/store/mysql/model"
)

// MessageRepository handles operator message persistence
type MessageRepository struct {
	ds *Datastore
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(ds *Datastore) *MessageRepository {
	return &MessageRepository{ds: ds}
}

// Create records a message
func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	return r.ds.DB(ctx).Create(message).Error
}

// ListByProject retrieves messages of a project, newest first
func (r *MessageRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]*model.Message, error) {
	var messages []*model.Message
	query := r.ds.DB(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&messages).Error
	return messages, err
}

// DeleteOlderThan deletes messages created before the cutoff
func (r *MessageRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.ds.DB(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.Message{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old messages: %w", result.Error)
	}
	return result.RowsAffected, nil
}
