package service

import (
	"context"
	"fmt"

	"jfrhub/internal/model"
	"jfrhub/pkg/logger"
)

// CompressionService compresses finished recording files. Each pass targets
// the sessions whose files can still change shape: every ACTIVE session plus
// the most recently finished one. Older sessions were already fully
// compressed by earlier passes.
type CompressionService struct {
	workspaces WorkspaceStore
	projects   ProjectStore
	storage    CompressionStorage
}

// NewCompressionService creates a compression service
func NewCompressionService(workspaces WorkspaceStore, projects ProjectStore, storage CompressionStorage) *CompressionService {
	return &CompressionService{
		workspaces: workspaces,
		projects:   projects,
		storage:    storage,
	}
}

// Compress runs one compression pass over all projects
func (s *CompressionService) Compress(ctx context.Context) error {
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
			if err := s.compressProject(ctx, project.OriginProjectID); err != nil {
				logger.WarnCtx(ctx, "compression failed for project %s: %v", project.OriginProjectID, err)
			}
		}
	}
	return nil
}

// CompressSession compresses one session on demand
func (s *CompressionService) CompressSession(ctx context.Context, sessionID string) error {
	return s.storage.CompressSession(ctx, sessionID)
}

func (s *CompressionService) compressProject(ctx context.Context, projectID string) error {
	sessions, err := s.storage.ListSessions(ctx, projectID, false)
	if err != nil {
		return err
	}

	latestFinishedSeen := false
	for _, session := range sessions {
		target := false
		switch session.Status {
		case model.StatusActive:
			target = true
		case model.StatusFinished:
			if !latestFinishedSeen {
				target = true
				latestFinishedSeen = true
			}
		}
		if !target {
			continue
		}
		if err := s.storage.CompressSession(ctx, session.ID); err != nil {
			// Fail fast inside a session, keep going across projects.
			return fmt.Errorf("session %s: %w", session.ID, err)
		}
	}
	return nil
}
