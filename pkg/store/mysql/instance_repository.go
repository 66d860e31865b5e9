package mysql

import (
	"context"
	"fmt"
	"time"

	"jfrhub/pkg/store/mysql/model"

	"gorm.io/gorm/clause"
)

// InstanceRepository handles project instance persistence
type InstanceRepository struct {
	ds *Datastore
}

// NewInstanceRepository creates a new instance repository
func NewInstanceRepository(ds *Datastore) *InstanceRepository {
	return &InstanceRepository{ds: ds}
}

// CreateIfAbsent creates an instance unless it already exists
func (r *InstanceRepository) CreateIfAbsent(ctx context.Context, instance *model.ProjectInstance) (bool, error) {
	result := r.ds.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(instance)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create instance: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkFinished sets finished_at once; already-finished instances are untouched
func (r *InstanceRepository) MarkFinished(ctx context.Context, instanceID string, finishedAt time.Time) error {
	return r.ds.DB(ctx).
		Model(&model.ProjectInstance{}).
		Where("id = ? AND finished_at IS NULL", instanceID).
		Update("finished_at", finishedAt).Error
}

// ListByProject retrieves all instances of a project
func (r *InstanceRepository) ListByProject(ctx context.Context, projectID string) ([]*model.ProjectInstance, error) {
	var instances []*model.ProjectInstance
	err := r.ds.DB(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&instances).Error
	return instances, err
}

// latestInstancePerProject is wrapped in a derived table because MySQL rejects
// a DELETE whose subquery reads the table being deleted from (error 1093).
const latestInstancePerProject = "(project_id, created_at) NOT IN (" +
	"SELECT project_id, created_at FROM (" +
	"SELECT project_id, MAX(created_at) AS created_at FROM project_instances GROUP BY project_id" +
	") AS latest_instances)"

// DeleteFinishedBefore deletes finished instances older than the cutoff,
// always keeping the most recent instance of every project.
func (r *InstanceRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.ds.DB(ctx).
		Where("finished_at IS NOT NULL AND finished_at < ?", cutoff).
		Where(latestInstancePerProject).
		Delete(&model.ProjectInstance{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old instances: %w", result.Error)
	}
	return result.RowsAffected, nil
}
