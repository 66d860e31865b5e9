package mysql

import (
	"context"
	"fmt"

	"jfrhub/pkg/store/mysql/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectRepository handles project persistence
type ProjectRepository struct {
	ds *Datastore
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(ds *Datastore) *ProjectRepository {
	return &ProjectRepository{ds: ds}
}

// CreateIfAbsent creates a project unless one with the same origin ID already
// exists. Idempotent so event handlers can be safely replayed.
func (r *ProjectRepository) CreateIfAbsent(ctx context.Context, project *model.Project) (bool, error) {
	result := r.ds.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(project)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create project: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetByOriginID retrieves a project by its origin identifier, nil when not found
func (r *ProjectRepository) GetByOriginID(ctx context.Context, originProjectID string) (*model.Project, error) {
	var project model.Project
	err := r.ds.DB(ctx).Where("origin_project_id = ?", originProjectID).First(&project).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// ListByWorkspace retrieves all projects of a workspace
func (r *ProjectRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.Project, error) {
	var projects []*model.Project
	err := r.ds.DB(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Find(&projects).Error
	return projects, err
}

// Delete removes a project by origin ID. Idempotent: deleting an absent
// project is a no-op.
func (r *ProjectRepository) Delete(ctx context.Context, originProjectID string) error {
	return r.ds.DB(ctx).
		Where("origin_project_id = ?", originProjectID).
		Delete(&model.Project{}).Error
}
