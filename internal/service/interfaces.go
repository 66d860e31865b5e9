package service

import (
	"context"
	"time"

	"jfrhub/internal/model"
	storemodel "jfrhub/pkg/store/mysql/model"
)

// WorkspaceStore workspace rows
type WorkspaceStore interface {
	Get(ctx context.Context, id string) (*storemodel.Workspace, error)
	List(ctx context.Context) ([]*storemodel.Workspace, error)
}

// ProjectStore project rows
type ProjectStore interface {
	GetByOriginID(ctx context.Context, originProjectID string) (*storemodel.Project, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*storemodel.Project, error)
}

// EventLogStore append-only workspace event log
type EventLogStore interface {
	Append(ctx context.Context, event *storemodel.WorkspaceEvent) error
	ReadFrom(ctx context.Context, workspaceID string, afterOffset int64) ([]*storemodel.WorkspaceEvent, error)
	ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]*storemodel.WorkspaceEvent, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// OffsetStore per (workspace, consumer) progress
type OffsetStore interface {
	GetOrCreate(ctx context.Context, workspaceID, consumerName string) (int64, error)
	Update(ctx context.Context, workspaceID, consumerName string, offset int64) error
}

// SessionRowStore session rows
type SessionRowStore interface {
	ListByProject(ctx context.Context, projectID string) ([]*storemodel.RecordingSession, error)
	FindUnfinished(ctx context.Context, projectID string) ([]*storemodel.RecordingSession, error)
	MarkFinished(ctx context.Context, sessionID string, finishedAt time.Time) (bool, error)
}

// InstanceRowStore instance rows
type InstanceRowStore interface {
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MessageStore operator messages
type MessageStore interface {
	Create(ctx context.Context, message *storemodel.Message) error
	ListByProject(ctx context.Context, projectID string, limit int) ([]*storemodel.Message, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionStatusSource derives session state from filesystem signals
type SessionStatusSource interface {
	SessionStatus(row *storemodel.RecordingSession) model.RecordingStatus
	SingleSession(ctx context.Context, sessionID string, withFiles bool) (*model.RecordingSession, error)
}

// CompressionStorage the storage operations the compression job needs
type CompressionStorage interface {
	ListSessions(ctx context.Context, projectID string, withFiles bool) ([]model.RecordingSession, error)
	CompressSession(ctx context.Context, sessionID string) error
}
