package service

import (
	"context"
	"fmt"

	"jfrhub/internal/service/consumer"
	"jfrhub/pkg/logger"
)

// SynchronizerConsumerName is the consumer track the project synchronizer
// advances. Other readers of the event log keep their own tracks.
const SynchronizerConsumerName = "project-synchronizer"

// SynchronizerService applies pending workspace events through the ordered
// consumer chain. Handler failures are isolated per event and the offset
// still advances past them: a permanently broken event must not block the
// queue. The offset is committed once per batch.
type SynchronizerService struct {
	workspaces WorkspaceStore
	eventLog   EventLogStore
	offsets    OffsetStore
	chain      []consumer.EventConsumer
}

// NewSynchronizerService creates a synchronizer service
func NewSynchronizerService(workspaces WorkspaceStore, eventLog EventLogStore, offsets OffsetStore, chain []consumer.EventConsumer) *SynchronizerService {
	return &SynchronizerService{
		workspaces: workspaces,
		eventLog:   eventLog,
		offsets:    offsets,
		chain:      chain,
	}
}

// Synchronize runs one pass over all workspaces
func (s *SynchronizerService) Synchronize(ctx context.Context) error {
	workspaces, err := s.workspaces.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}

	for _, workspace := range workspaces {
		if err := s.synchronizeWorkspace(ctx, workspace.ID); err != nil {
			logger.WarnCtx(ctx, "failed to synchronize workspace %s: %v", workspace.ID, err)
		}
	}
	return nil
}

func (s *SynchronizerService) synchronizeWorkspace(ctx context.Context, workspaceID string) error {
	offset, err := s.offsets.GetOrCreate(ctx, workspaceID, SynchronizerConsumerName)
	if err != nil {
		return err
	}

	events, err := s.eventLog.ReadFrom(ctx, workspaceID, offset)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	failed := 0
	lastID := offset
	for _, event := range events {
		if _, err := consumer.Dispatch(ctx, s.chain, event); err != nil {
			logger.WarnCtx(ctx, "event %d (%s) failed in workspace %s: %v", event.ID, event.EventType, workspaceID, err)
			failed++
		}
		lastID = event.ID
	}

	// One commit per batch. A crash before this line replays the whole
	// batch; all consumers are idempotent.
	if err := s.offsets.Update(ctx, workspaceID, SynchronizerConsumerName, lastID); err != nil {
		return fmt.Errorf("failed to commit offset: %w", err)
	}

	if failed > 0 {
		logger.WarnCtx(ctx, "workspace %s: %d of %d events failed and were skipped", workspaceID, failed, len(events))
	} else {
		logger.InfoCtx(ctx, "workspace %s: applied %d events, offset now %d", workspaceID, len(events), lastID)
	}
	return nil
}
