package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"jfrhub/internal/model"
	"jfrhub/pkg/logger"
	storemodel "jfrhub/pkg/store/mysql/model"
)

// DetectorService decides when active recording sessions have finished. On a
// finish it persists finishedAt and appends a SESSION_FINISHED event, so
// downstream reactions (compression targeting, instance auto-finish, mirrors)
// all flow through the event log rather than direct calls.
type DetectorService struct {
	workspaces WorkspaceStore
	projects   ProjectStore
	sessions   SessionRowStore
	messages   MessageStore
	eventLog   EventLogStore
	status     SessionStatusSource
}

// NewDetectorService creates a detector service
func NewDetectorService(workspaces WorkspaceStore, projects ProjectStore, sessions SessionRowStore, messages MessageStore, eventLog EventLogStore, status SessionStatusSource) *DetectorService {
	return &DetectorService{
		workspaces: workspaces,
		projects:   projects,
		sessions:   sessions,
		messages:   messages,
		eventLog:   eventLog,
		status:     status,
	}
}

// Detect runs one detection pass over all unfinished sessions
func (s *DetectorService) Detect(ctx context.Context) error {
	workspaces, err := s.workspaces.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}

	for _, workspace := range workspaces {
		projects, err := s.projects.ListByWorkspace(ctx, workspace.ID)
		if err != nil {
			logger.WarnCtx(ctx, "failed to list projects of workspace %s: %v", workspace.ID, err)
			continue
		}
		for _, project := range projects {
			if err := s.detectProject(ctx, project); err != nil {
				logger.WarnCtx(ctx, "detection failed for project %s: %v", project.OriginProjectID, err)
			}
		}
	}
	return nil
}

func (s *DetectorService) detectProject(ctx context.Context, project *storemodel.Project) error {
	unfinished, err := s.sessions.FindUnfinished(ctx, project.OriginProjectID)
	if err != nil {
		return err
	}

	for _, row := range unfinished {
		if s.status.SessionStatus(row) != model.StatusFinished {
			continue
		}

		now := time.Now()
		transitioned, err := s.sessions.MarkFinished(ctx, row.ID, now)
		if err != nil {
			logger.WarnCtx(ctx, "failed to finish session %s: %v", row.ID, err)
			continue
		}
		if !transitioned {
			continue
		}
		logger.InfoCtx(ctx, "session %s of project %s detected as finished", row.ID, project.OriginProjectID)

		if err := s.appendFinishedEvent(ctx, project, row, now); err != nil {
			logger.WarnCtx(ctx, "failed to append SESSION_FINISHED for %s: %v", row.ID, err)
		}
		s.reportCrash(ctx, project, row)
	}
	return nil
}

func (s *DetectorService) appendFinishedEvent(ctx context.Context, project *storemodel.Project, row *storemodel.RecordingSession, finishedAt time.Time) error {
	payload, err := json.Marshal(model.SessionFinishedContent{FinishedAt: finishedAt})
	if err != nil {
		return err
	}
	return s.eventLog.Append(ctx, &storemodel.WorkspaceEvent{
		WorkspaceID:     project.WorkspaceID,
		ProjectID:       project.OriginProjectID,
		SessionID:       row.ID,
		EventType:       string(model.EventSessionFinished),
		DedupKey:        "detector-finished:" + row.ID,
		Payload:         string(payload),
		OriginCreatedAt: finishedAt,
		CreatedAt:       time.Now(),
		CreatedBy:       string(model.CreatorDetectorJob),
	})
}

// reportCrash raises an operator alert when a finished session directory
// contains a JVM fatal error log.
func (s *DetectorService) reportCrash(ctx context.Context, project *storemodel.Project, row *storemodel.RecordingSession) {
	session, err := s.status.SingleSession(ctx, row.ID, true)
	if err != nil || session == nil {
		return
	}
	for _, file := range session.Files {
		if file.FileType != model.FileTypeErrorLog {
			continue
		}
		message := &storemodel.Message{
			ProjectID: project.OriginProjectID,
			SessionID: row.ID,
			Severity:  storemodel.SeverityAlert,
			Content:   fmt.Sprintf("JVM crash detected: session %s contains %s", row.ID, file.Name),
			CreatedAt: time.Now(),
		}
		if err := s.messages.Create(ctx, message); err != nil {
			logger.WarnCtx(ctx, "failed to record crash message for session %s: %v", row.ID, err)
		}
		return
	}
}
