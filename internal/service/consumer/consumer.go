package consumer

import (
	"context"
	"time"

	storemodel "jfrhub/pkg/store/mysql/model"
)

// EventConsumer applies one kind of workspace event to server state. Exactly
// one consumer matches any event type; the chain order is part of the
// contract and is tested.
type EventConsumer interface {
	Name() string
	IsApplicable(event *storemodel.WorkspaceEvent) bool
	Process(ctx context.Context, event *storemodel.WorkspaceEvent) error
}

// ProjectStore is the project persistence the consumers need
type ProjectStore interface {
	CreateIfAbsent(ctx context.Context, project *storemodel.Project) (bool, error)
	GetByOriginID(ctx context.Context, originProjectID string) (*storemodel.Project, error)
	Delete(ctx context.Context, originProjectID string) error
}

// InstanceStore is the instance persistence the consumers need
type InstanceStore interface {
	CreateIfAbsent(ctx context.Context, instance *storemodel.ProjectInstance) (bool, error)
	MarkFinished(ctx context.Context, instanceID string, finishedAt time.Time) error
}

// SessionStore is the session persistence the consumers need
type SessionStore interface {
	CreateIfAbsent(ctx context.Context, session *storemodel.RecordingSession) (bool, error)
	Get(ctx context.Context, id string) (*storemodel.RecordingSession, error)
	ListByProject(ctx context.Context, projectID string) ([]*storemodel.RecordingSession, error)
	FindUnfinishedByInstance(ctx context.Context, instanceID string) ([]*storemodel.RecordingSession, error)
	CountActiveByInstance(ctx context.Context, instanceID string) (int64, error)
	MarkFinished(ctx context.Context, sessionID string, finishedAt time.Time) (bool, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteByProject(ctx context.Context, projectID string) error
}

// SessionFiles is the filesystem side of session deletion
type SessionFiles interface {
	DeleteSession(ctx context.Context, sessionID string) error
}

// Stores bundles the persistence dependencies of the consumer chain
type Stores struct {
	Projects  ProjectStore
	Instances InstanceStore
	Sessions  SessionStore
	Files     SessionFiles
}

// NewChain builds the consumer chain in its fixed priority order. The order
// is load-bearing: it matches the causal order of event kinds so that one
// batch containing a whole project lifecycle applies cleanly.
func NewChain(stores Stores) []EventConsumer {
	return []EventConsumer{
		&createProjectConsumer{projects: stores.Projects},
		&instanceCreatedConsumer{instances: stores.Instances},
		&instanceFinishedConsumer{instances: stores.Instances, sessions: stores.Sessions},
		&createSessionConsumer{sessions: stores.Sessions, instances: stores.Instances},
		&stopStreamingConsumer{sessions: stores.Sessions, instances: stores.Instances},
		&deleteSessionConsumer{sessions: stores.Sessions, files: stores.Files},
		&deleteProjectConsumer{projects: stores.Projects, sessions: stores.Sessions, files: stores.Files},
	}
}

// Dispatch runs the event through the first applicable consumer. Events with
// no matching consumer are skipped; unknown event kinds from newer producers
// must not fail the batch.
func Dispatch(ctx context.Context, chain []EventConsumer, event *storemodel.WorkspaceEvent) (string, error) {
	for _, c := range chain {
		if c.IsApplicable(event) {
			return c.Name(), c.Process(ctx, event)
		}
	}
	return "", nil
}

// finishSession marks a session finished and, when it was the instance's last
// active one, finishes the instance as well.
func finishSession(ctx context.Context, sessions SessionStore, instances InstanceStore, sessionID, instanceID string, finishedAt time.Time) error {
	transitioned, err := sessions.MarkFinished(ctx, sessionID, finishedAt)
	if err != nil {
		return err
	}
	if !transitioned || instanceID == "" {
		return nil
	}

	active, err := sessions.CountActiveByInstance(ctx, instanceID)
	if err != nil {
		return err
	}
	if active == 0 {
		return instances.MarkFinished(ctx, instanceID, finishedAt)
	}
	return nil
}
