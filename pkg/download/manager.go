package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"jfrhub/internal/model"
	"jfrhub/pkg/logger"
	"jfrhub/pkg/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrTaskNotFound is returned when the referenced task does not exist
var ErrTaskNotFound = errors.New("download task not found")

// Options tunes the manager
type Options struct {
	// TempDir is where per-task download directories are created
	TempDir string
	// Parallelism caps concurrent file transfers per task
	Parallelism int
	// CompletedTaskTTL is how long terminal tasks stay queryable
	CompletedTaskTTL time.Duration
	// SweepInterval is how often terminal tasks are garbage collected
	SweepInterval time.Duration
}

func (o *Options) applyDefaults() {
	if o.TempDir == "" {
		o.TempDir = os.TempDir()
	}
	if o.Parallelism <= 0 {
		o.Parallelism = 3
	}
	if o.CompletedTaskTTL <= 0 {
		o.CompletedTaskTTL = 5 * time.Minute
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Minute
	}
}

// Manager owns the in-memory download task registry. It is constructed
// explicitly with its dependencies and has an explicit Start/Stop lifecycle;
// the TTL sweep of finished tasks runs only between the two.
type Manager struct {
	storage repository.Storage
	opts    Options

	mu    sync.RWMutex
	tasks map[string]*Task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a download task manager
func NewManager(storage repository.Storage, opts Options) *Manager {
	opts.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		storage: storage,
		opts:    opts,
		tasks:   make(map[string]*Task),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the background sweep of finished tasks
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.sweepLoop()
	logger.Info("download manager started",
		zap.Duration("task_ttl", m.opts.CompletedTaskTTL),
		zap.Int("parallelism", m.opts.Parallelism))
}

// Stop cancels running downloads and the sweep, then waits for them
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
	logger.Info("download manager stopped")
}

// CreateTask registers a new pending task for a session. The session must
// exist; unknown sessions are a client error.
func (m *Manager) CreateTask(ctx context.Context, sessionID string, fileIDs []string, merge bool) (*Task, error) {
	session, err := m.storage.SingleSession(ctx, sessionID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if session == nil {
		return nil, repository.ErrSessionNotFound
	}

	task := NewTask(uuid.NewString(), sessionID, fileIDs, merge, time.Now())
	m.mu.Lock()
	m.tasks[task.ID] = task
	m.mu.Unlock()

	logger.InfoCtx(ctx, "created download task %s for session %s (merge=%v)", task.ID, sessionID, merge)
	return task, nil
}

// StartDownload begins executing a pending task asynchronously
func (m *Manager) StartDownload(taskID string) error {
	task := m.get(taskID)
	if task == nil {
		return ErrTaskNotFound
	}
	if task.Status() != model.DownloadPending {
		return fmt.Errorf("task %s is not pending", taskID)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.execute(m.ctx, task)
	}()
	return nil
}

// GetProgress retrieves a progress snapshot
func (m *Manager) GetProgress(taskID string) (model.DownloadProgress, bool) {
	task := m.get(taskID)
	if task == nil {
		return model.DownloadProgress{}, false
	}
	return task.Snapshot(), true
}

// CancelDownload requests cancellation. Returns false when the task is
// unknown or already terminal.
func (m *Manager) CancelDownload(taskID string) bool {
	task := m.get(taskID)
	if task == nil {
		return false
	}
	return task.Cancel()
}

// AddProgressListener attaches a listener to a task; it immediately receives
// the current snapshot. The returned id detaches it again.
func (m *Manager) AddProgressListener(taskID string, listener ProgressListener) (int64, error) {
	task := m.get(taskID)
	if task == nil {
		return 0, ErrTaskNotFound
	}
	return task.AddListener(listener), nil
}

// RemoveProgressListener detaches a listener registered on a task
func (m *Manager) RemoveProgressListener(taskID string, listenerID int64) {
	if task := m.get(taskID); task != nil {
		task.RemoveListener(listenerID)
	}
}

// Task retrieves a task by ID, nil when unknown
func (m *Manager) Task(taskID string) *Task {
	return m.get(taskID)
}

func (m *Manager) get(taskID string) *Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tasks[taskID]
}

func (m *Manager) sweepLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

// sweep removes terminal tasks whose completion is older than the TTL
func (m *Manager) sweep(now time.Time) {
	cutoff := now.Add(-m.opts.CompletedTaskTTL)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, task := range m.tasks {
		if !task.Status().IsTerminal() {
			continue
		}
		completedAt := task.CompletedAt()
		if completedAt != nil && completedAt.Before(cutoff) {
			delete(m.tasks, id)
			logger.Debug("swept finished download task", zap.String("task_id", id))
		}
	}
}
