package mysql

// Repository aggregates all MySQL repositories
type Repository struct {
	ds *Datastore

	Workspace      *WorkspaceRepository
	Project        *ProjectRepository
	Instance       *InstanceRepository
	Session        *SessionRepository
	EventLog       *EventLogRepository
	ConsumerOffset *ConsumerOffsetRepository
	Message        *MessageRepository
}

// NewRepository creates a new MySQL repository with all sub-repositories
func NewRepository(dsn string) (*Repository, error) {
	ds, err := NewDatastore(dsn)
	if err != nil {
		return nil, err
	}
	return NewRepositoryWithDatastore(ds), nil
}

// NewRepositoryWithDatastore wires the sub-repositories around an existing
// datastore (used by tests with a prepared connection).
func NewRepositoryWithDatastore(ds *Datastore) *Repository {
	return &Repository{
		ds:             ds,
		Workspace:      NewWorkspaceRepository(ds),
		Project:        NewProjectRepository(ds),
		Instance:       NewInstanceRepository(ds),
		Session:        NewSessionRepository(ds),
		EventLog:       NewEventLogRepository(ds),
		ConsumerOffset: NewConsumerOffsetRepository(ds),
		Message:        NewMessageRepository(ds),
	}
}

// GetDatastore returns the underlying datastore for transaction support
func (r *Repository) GetDatastore() *Datastore {
	return r.ds
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.ds.Close()
}
