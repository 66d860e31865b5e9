package mysql

import (
	"context"
	"fmt"

	"jfrhub/pkg/store/mysql/model"

	"gorm.io/gorm"
)

// WorkspaceRepository handles workspace persistence
type WorkspaceRepository struct {
	ds *Datastore
}

// NewWorkspaceRepository creates a new workspace repository
func NewWorkspaceRepository(ds *Datastore) *WorkspaceRepository {
	return &WorkspaceRepository{ds: ds}
}

// Create creates a workspace
func (r *WorkspaceRepository) Create(ctx context.Context, workspace *model.Workspace) error {
	return r.ds.DB(ctx).Create(workspace).Error
}

// Get retrieves a workspace by ID, nil when not found
func (r *WorkspaceRepository) Get(ctx context.Context, id string) (*model.Workspace, error) {
	var workspace model.Workspace
	err := r.ds.DB(ctx).Where("id = ?", id).First(&workspace).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return &workspace, nil
}

// List retrieves all workspaces
func (r *WorkspaceRepository) List(ctx context.Context) ([]*model.Workspace, error) {
	var workspaces []*model.Workspace
	err := r.ds.DB(ctx).Order("created_at ASC").Find(&workspaces).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return workspaces, nil
}
