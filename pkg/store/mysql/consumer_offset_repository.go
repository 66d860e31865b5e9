package mysql

import (
	"context"
	"fmt"
	"time"

	"jfrhub/pkg/store/mysql/model"

	"gorm.io/gorm/clause"
)

// ConsumerOffsetRepository per (workspace, consumer) last-processed offset.
// Rows are created lazily on first poll and only ever move forward.
type ConsumerOffsetRepository struct {
	ds *Datastore
}

// NewConsumerOffsetRepository creates a new consumer offset repository
func NewConsumerOffsetRepository(ds *Datastore) *ConsumerOffsetRepository {
	return &ConsumerOffsetRepository{ds: ds}
}

// GetOrCreate returns the last processed offset for a consumer, creating the
// row with offset 0 when the consumer polls for the first time.
func (r *ConsumerOffsetRepository) GetOrCreate(ctx context.Context, workspaceID, consumerName string) (int64, error) {
	row := &model.ConsumerOffset{
		WorkspaceID:  workspaceID,
		ConsumerName: consumerName,
		LastOffset:   0,
		CreatedAt:    time.Now(),
	}
	err := r.ds.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
	if err != nil {
		return 0, fmt.Errorf("failed to register consumer: %w", err)
	}

	var existing model.ConsumerOffset
	err = r.ds.DB(ctx).
		Where("workspace_id = ? AND consumer_name = ?", workspaceID, consumerName).
		First(&existing).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read consumer offset: %w", err)
	}
	return existing.LastOffset, nil
}

// Update advances the consumer offset. The guard keeps the offset monotonic
// even if an older batch commits late.
func (r *ConsumerOffsetRepository) Update(ctx context.Context, workspaceID, consumerName string, offset int64) error {
	now := time.Now()
	return r.ds.DB(ctx).
		Model(&model.ConsumerOffset{}).
		Where("workspace_id = ? AND consumer_name = ? AND last_offset < ?", workspaceID, consumerName, offset).
		Updates(map[string]interface{}{
			"last_offset":       offset,
			"last_execution_at": now,
		}).Error
}
