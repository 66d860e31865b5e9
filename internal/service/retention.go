package service

import (
	"context"
	"fmt"
	"time"

	"jfrhub/internal/jobs"
	"jfrhub/internal/model"
	"jfrhub/pkg/folderqueue"
	"jfrhub/pkg/logger"
	storemodel "jfrhub/pkg/store/mysql/model"
)

// RetentionPolicy configures the age limits of the retention jobs
type RetentionPolicy struct {
	SessionTTL   time.Duration
	InstanceTTL  time.Duration
	EventTTL     time.Duration
	MessageTTL   time.Duration
	ProcessedTTL time.Duration
}

// RetentionService ages out old data. All cleaners share one policy shape:
// candidates are listed newest first, the most recent one is always kept, and
// the rest is deleted once older than its TTL. Session deletion is not done
// directly; it routes through a SESSION_DELETED event so repository files,
// database rows, and mirrors stay on the single deletion path.
type RetentionService struct {
	workspaces WorkspaceStore
	projects   ProjectStore
	sessions   SessionRowStore
	instances  InstanceRowStore
	eventLog   EventLogStore
	messages   MessageStore
	queue      *folderqueue.Queue
	trigger    *jobs.SchedulerTrigger
	policy     RetentionPolicy
}

// NewRetentionService creates a retention service
func NewRetentionService(
	workspaces WorkspaceStore,
	projects ProjectStore,
	sessions SessionRowStore,
	instances InstanceRowStore,
	eventLog EventLogStore,
	messages MessageStore,
	queue *folderqueue.Queue,
	trigger *jobs.SchedulerTrigger,
	policy RetentionPolicy,
) *RetentionService {
	return &RetentionService{
		workspaces: workspaces,
		projects:   projects,
		sessions:   sessions,
		instances:  instances,
		eventLog:   eventLog,
		messages:   messages,
		queue:      queue,
		trigger:    trigger,
		policy:     policy,
	}
}

// CleanSessions emits deletion events for sessions past their TTL
func (s *RetentionService) CleanSessions(ctx context.Context) error {
	workspaces, err := s.workspaces.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}

	cutoff := time.Now().Add(-s.policy.SessionTTL)
	emitted := 0
	for _, workspace := range workspaces {
		projects, err := s.projects.ListByWorkspace(ctx, workspace.ID)
		if err != nil {
			logger.WarnCtx(ctx, "failed to list projects of workspace %s: %v", workspace.ID, err)
			continue
		}
		for _, project := range projects {
			count, err := s.cleanProjectSessions(ctx, workspace.ID, project.OriginProjectID, cutoff)
			if err != nil {
				logger.WarnCtx(ctx, "session cleanup failed for project %s: %v", project.OriginProjectID, err)
				continue
			}
			emitted += count
		}
	}

	if emitted > 0 {
		logger.InfoCtx(ctx, "session retention emitted %d deletion events", emitted)
		if s.trigger != nil {
			s.trigger.Execute(ctx, triggerBound)
		}
	}
	return nil
}

func (s *RetentionService) cleanProjectSessions(ctx context.Context, workspaceID, projectID string, cutoff time.Time) (int, error) {
	rows, err := s.sessions.ListByProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if len(rows) <= 1 {
		// The most recent session survives regardless of age.
		return 0, nil
	}

	emitted := 0
	for _, row := range rows[1:] {
		if row.FinishedAt == nil || !row.FinishedAt.Before(cutoff) {
			continue
		}
		event := &storemodel.WorkspaceEvent{
			WorkspaceID:     workspaceID,
			ProjectID:       projectID,
			SessionID:       row.ID,
			EventType:       string(model.EventSessionDeleted),
			DedupKey:        "retention-delete:" + row.ID,
			Payload:         "{}",
			OriginCreatedAt: time.Now(),
			CreatedAt:       time.Now(),
			CreatedBy:       string(model.CreatorRetentionJob),
		}
		if err := s.eventLog.Append(ctx, event); err != nil {
			return emitted, err
		}
		emitted++
	}
	return emitted, nil
}

// CleanInstances deletes finished instances past their TTL, keeping the most
// recent instance of every project.
func (s *RetentionService) CleanInstances(ctx context.Context) error {
	deleted, err := s.instances.DeleteFinishedBefore(ctx, time.Now().Add(-s.policy.InstanceTTL))
	if err != nil {
		return err
	}
	if deleted > 0 {
		logger.InfoCtx(ctx, "instance retention deleted %d instances", deleted)
	}
	return nil
}

// CleanData ages out events, messages, and processed inbox files
func (s *RetentionService) CleanData(ctx context.Context) error {
	now := time.Now()

	events, err := s.eventLog.DeleteOlderThan(ctx, now.Add(-s.policy.EventTTL))
	if err != nil {
		logger.WarnCtx(ctx, "event retention failed: %v", err)
	}

	messages, err := s.messages.DeleteOlderThan(ctx, now.Add(-s.policy.MessageTTL))
	if err != nil {
		logger.WarnCtx(ctx, "message retention failed: %v", err)
	}

	processed := 0
	if s.queue != nil {
		processed, err = s.queue.Cleanup(ctx, now.Add(-s.policy.ProcessedTTL))
		if err != nil {
			logger.WarnCtx(ctx, "processed inbox cleanup failed: %v", err)
		}
	}

	if events > 0 || messages > 0 || processed > 0 {
		logger.InfoCtx(ctx, "data retention removed %d events, %d messages, %d processed files", events, messages, processed)
	}
	return nil
}
