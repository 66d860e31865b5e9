package mysql

import (
	"context"
	"fmt"
	"time"

	"jfrhub/pkg/store/mysql/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository handles recording session persistence
type SessionRepository struct {
	ds *Datastore
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(ds *Datastore) *SessionRepository {
	return &SessionRepository{ds: ds}
}

// CreateIfAbsent creates a session unless it already exists
func (r *SessionRepository) CreateIfAbsent(ctx context.Context, session *model.RecordingSession) (bool, error) {
	result := r.ds.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(session)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create session: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Get retrieves a session by ID, nil when not found
func (r *SessionRepository) Get(ctx context.Context, id string) (*model.RecordingSession, error) {
	var session model.RecordingSession
	err := r.ds.DB(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// ListByProject retrieves all sessions of a project, newest first
func (r *SessionRepository) ListByProject(ctx context.Context, projectID string) ([]*model.RecordingSession, error) {
	var sessions []*model.RecordingSession
	err := r.ds.DB(ctx).
		Where("project_id = ?", projectID).
		Order("origin_created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// FindUnfinished retrieves sessions of a project with no finished_at yet
func (r *SessionRepository) FindUnfinished(ctx context.Context, projectID string) ([]*model.RecordingSession, error) {
	var sessions []*model.RecordingSession
	err := r.ds.DB(ctx).
		Where("project_id = ? AND finished_at IS NULL", projectID).
		Order("origin_created_at ASC").
		Find(&sessions).Error
	return sessions, err
}

// FindUnfinishedByInstance retrieves unfinished sessions of one instance in
// chronological order.
func (r *SessionRepository) FindUnfinishedByInstance(ctx context.Context, instanceID string) ([]*model.RecordingSession, error) {
	var sessions []*model.RecordingSession
	err := r.ds.DB(ctx).
		Where("instance_id = ? AND finished_at IS NULL", instanceID).
		Order("origin_created_at ASC").
		Find(&sessions).Error
	return sessions, err
}

// CountActiveByInstance counts unfinished sessions of an instance
func (r *SessionRepository) CountActiveByInstance(ctx context.Context, instanceID string) (int64, error) {
	var count int64
	err := r.ds.DB(ctx).
		Model(&model.RecordingSession{}).
		Where("instance_id = ? AND finished_at IS NULL", instanceID).
		Count(&count).Error
	return count, err
}

// MarkFinished sets finished_at once. Returns true when this call performed
// the transition, false when the session was already finished or absent.
func (r *SessionRepository) MarkFinished(ctx context.Context, sessionID string, finishedAt time.Time) (bool, error) {
	result := r.ds.DB(ctx).
		Model(&model.RecordingSession{}).
		Where("id = ? AND finished_at IS NULL", sessionID).
		Update("finished_at", finishedAt)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark session finished: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Delete removes a session by ID. Idempotent.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	return r.ds.DB(ctx).Where("id = ?", sessionID).Delete(&model.RecordingSession{}).Error
}

// DeleteByProject removes all sessions of a project
func (r *SessionRepository) DeleteByProject(ctx context.Context, projectID string) error {
	return r.ds.DB(ctx).Where("project_id = ?", projectID).Delete(&model.RecordingSession{}).Error
}
