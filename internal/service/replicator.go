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

// triggerBound caps how long replication waits for the triggered
// synchronization pass before carrying on.
const triggerBound = 5 * time.Second

// ReplicatorService moves event files from the shared inbox into the durable
// event log. A file is acknowledged only after its event was appended, so a
// crash in between replays the file; the dedup key makes the replay a no-op.
type ReplicatorService struct {
	queue      *folderqueue.Queue
	workspaces WorkspaceStore
	eventLog   EventLogStore
	trigger    *jobs.SchedulerTrigger
}

// NewReplicatorService creates a replicator service
func NewReplicatorService(queue *folderqueue.Queue, workspaces WorkspaceStore, eventLog EventLogStore, trigger *jobs.SchedulerTrigger) *ReplicatorService {
	return &ReplicatorService{
		queue:      queue,
		workspaces: workspaces,
		eventLog:   eventLog,
		trigger:    trigger,
	}
}

// Replicate runs one inbox pass and returns the number of replicated events
func (s *ReplicatorService) Replicate(ctx context.Context) (int, error) {
	messages, err := folderqueue.Poll[model.CLIWorkspaceEvent](ctx, s.queue)
	if err != nil {
		return 0, fmt.Errorf("failed to poll inbox: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	var acknowledged []string
	for _, msg := range messages {
		workspace, err := s.workspaces.Get(ctx, msg.Payload.WorkspaceID)
		if err != nil {
			logger.WarnCtx(ctx, "failed to look up workspace %s: %v", msg.Payload.WorkspaceID, err)
			continue
		}
		if workspace == nil {
			// The workspace may be registered later; leaving the file in
			// place retries it next cycle.
			logger.DebugCtx(ctx, "workspace %s not yet known, leaving %s in the inbox", msg.Payload.WorkspaceID, msg.FileName)
			continue
		}

		if err := s.eventLog.Append(ctx, toEventRow(msg.Payload)); err != nil {
			logger.WarnCtx(ctx, "failed to append event from %s: %v", msg.FileName, err)
			continue
		}
		acknowledged = append(acknowledged, msg.FileName)
	}

	if len(acknowledged) > 0 {
		if err := s.queue.Acknowledge(ctx, acknowledged); err != nil {
			logger.WarnCtx(ctx, "failed to acknowledge inbox files: %v", err)
		}
		logger.InfoCtx(ctx, "replicated %d workspace events", len(acknowledged))
		if s.trigger != nil {
			s.trigger.Execute(ctx, triggerBound)
		}
	}
	return len(acknowledged), nil
}

func toEventRow(event model.CLIWorkspaceEvent) *storemodel.WorkspaceEvent {
	return &storemodel.WorkspaceEvent{
		WorkspaceID:     event.WorkspaceID,
		ProjectID:       event.ProjectID,
		SessionID:       event.SessionID,
		EventType:       string(event.EventType),
		DedupKey:        fmt.Sprintf("%s:%s", event.WorkspaceID, event.EventID),
		Payload:         string(event.Content),
		OriginCreatedAt: event.CreatedAt,
		CreatedAt:       time.Now(),
		CreatedBy:       string(model.CreatorCLIReplicator),
	}
}
