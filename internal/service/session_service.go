package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jfrhub/internal/jobs"
	"jfrhub/internal/model"
	"jfrhub/pkg/logger"
	"jfrhub/pkg/repository"
	storemodel "jfrhub/pkg/store/mysql/model"

	"github.com/google/uuid"
)

// ErrWorkspaceNotFound is returned for operations on an unknown workspace
var ErrWorkspaceNotFound = errors.New("workspace not found")

// SessionService is the read/command surface the HTTP handlers use
type SessionService struct {
	workspaces WorkspaceStore
	projects   ProjectStore
	eventLog   EventLogStore
	messages   MessageStore
	storage    repository.Storage
	trigger    *jobs.SchedulerTrigger
}

// NewSessionService creates a session service
func NewSessionService(workspaces WorkspaceStore, projects ProjectStore, eventLog EventLogStore, messages MessageStore, storage repository.Storage, trigger *jobs.SchedulerTrigger) *SessionService {
	return &SessionService{
		workspaces: workspaces,
		projects:   projects,
		eventLog:   eventLog,
		messages:   messages,
		storage:    storage,
		trigger:    trigger,
	}
}

// ListWorkspaces retrieves all workspaces
func (s *SessionService) ListWorkspaces(ctx context.Context) ([]*storemodel.Workspace, error) {
	return s.workspaces.List(ctx)
}

// ListProjects retrieves the projects of a workspace
func (s *SessionService) ListProjects(ctx context.Context, workspaceID string) ([]*storemodel.Project, error) {
	workspace, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if workspace == nil {
		return nil, ErrWorkspaceNotFound
	}
	return s.projects.ListByWorkspace(ctx, workspaceID)
}

// ListSessions retrieves the sessions of a project with derived status
func (s *SessionService) ListSessions(ctx context.Context, projectID string, withFiles bool) ([]model.RecordingSession, error) {
	return s.storage.ListSessions(ctx, projectID, withFiles)
}

// GetSession retrieves one session
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*model.RecordingSession, error) {
	session, err := s.storage.SingleSession(ctx, sessionID, true)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, repository.ErrSessionNotFound
	}
	return session, nil
}

// DeleteSession requests deletion of a session. The deletion itself happens
// through the event log (the same path the retention job uses); an immediate
// synchronization pass is triggered so the caller observes the effect
// promptly rather than after the next period.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	session, err := s.storage.SingleSession(ctx, sessionID, false)
	if err != nil {
		return err
	}
	if session == nil {
		return repository.ErrSessionNotFound
	}

	project, err := s.projects.GetByOriginID(ctx, session.ProjectID)
	if err != nil {
		return err
	}
	if project == nil {
		return fmt.Errorf("session %s has no project", sessionID)
	}

	event := &storemodel.WorkspaceEvent{
		WorkspaceID:     project.WorkspaceID,
		ProjectID:       session.ProjectID,
		SessionID:       sessionID,
		EventType:       string(model.EventSessionDeleted),
		DedupKey:        "manual-delete:" + sessionID + ":" + uuid.NewString(),
		Payload:         "{}",
		OriginCreatedAt: time.Now(),
		CreatedAt:       time.Now(),
		CreatedBy:       string(model.CreatorManual),
	}
	if err := s.eventLog.Append(ctx, event); err != nil {
		return fmt.Errorf("failed to append deletion event: %w", err)
	}

	logger.InfoCtx(ctx, "requested deletion of session %s", sessionID)
	if s.trigger != nil {
		s.trigger.Execute(ctx, triggerBound)
	}
	return nil
}

// ListEvents retrieves the newest events of a workspace
func (s *SessionService) ListEvents(ctx context.Context, workspaceID string, limit int) ([]*storemodel.WorkspaceEvent, error) {
	workspace, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if workspace == nil {
		return nil, ErrWorkspaceNotFound
	}
	return s.eventLog.ListByWorkspace(ctx, workspaceID, limit)
}

// ListMessages retrieves the newest operator messages of a project
func (s *SessionService) ListMessages(ctx context.Context, projectID string, limit int) ([]*storemodel.Message, error) {
	return s.messages.ListByProject(ctx, projectID, limit)
}
