package download

import (
	"sync"
	"time"

	"jfrhub/internal/model"
	"jfrhub/pkg/logger"

	"go.uber.org/zap"
)

// ProgressListener receives a progress snapshot on every state change
type ProgressListener func(model.DownloadProgress)

// Task aggregates concurrent per-file download progress for one request.
// File-transfer workers drive it through the On* callbacks; HTTP handlers and
// SSE streams read it through Snapshot. All state is guarded by one mutex;
// listeners are notified outside the lock from a copied slice so a slow
// listener never blocks a transfer worker holding it.
type Task struct {
	ID        string
	SessionID string
	FileIDs   []string
	Merge     bool
	CreatedAt time.Time

	mu             sync.Mutex
	status         model.DownloadTaskStatus
	activeFiles    map[string]*model.FileProgress
	completedFiles []model.FileProgress
	totalFiles     int
	totalBytes     int64
	completedBytes int64
	errorMessage   string
	resultPath     string
	startedAt      time.Time
	completedAt    *time.Time
	cancelled      bool
	listeners      map[int64]ProgressListener
	nextListenerID int64
}

// NewTask creates a pending task
func NewTask(id, sessionID string, fileIDs []string, merge bool, now time.Time) *Task {
	return &Task{
		ID:          id,
		SessionID:   sessionID,
		FileIDs:     fileIDs,
		Merge:       merge,
		CreatedAt:   now,
		status:      model.DownloadPending,
		activeFiles: make(map[string]*model.FileProgress),
		listeners:   make(map[int64]ProgressListener),
		startedAt:   now,
	}
}

// OnStart records the planned transfer volume and moves to DOWNLOADING
func (t *Task) OnStart(totalFiles int, totalBytes int64) {
	t.mu.Lock()
	if t.status.IsTerminal() {
		t.mu.Unlock()
		return
	}
	t.status = model.DownloadDownloading
	t.totalFiles = totalFiles
	t.totalBytes = totalBytes
	t.startedAt = time.Now()
	t.mu.Unlock()
	t.notifyListeners()
}

// OnFileStart registers a file entering the active set
func (t *Task) OnFileStart(fileName string, fileSize int64) {
	t.mu.Lock()
	t.activeFiles[fileName] = &model.FileProgress{
		FileName: fileName,
		FileSize: fileSize,
		Status:   model.FileDownloading,
	}
	t.mu.Unlock()
	t.notifyListeners()
}

// OnFileProgress updates the live byte count of an active file
func (t *Task) OnFileProgress(fileName string, downloadedBytes int64) {
	t.mu.Lock()
	fp, ok := t.activeFiles[fileName]
	if !ok {
		t.mu.Unlock()
		return
	}
	fp.DownloadedBytes = downloadedBytes
	// An external writer may have grown the file past its declared size;
	// raise the declared sizes so percent never exceeds 100.
	if downloadedBytes > fp.FileSize {
		t.totalBytes += downloadedBytes - fp.FileSize
		fp.FileSize = downloadedBytes
	}
	t.mu.Unlock()
	t.notifyListeners()
}

// OnFileComplete moves a file from the active to the completed set
func (t *Task) OnFileComplete(fileName string) {
	t.mu.Lock()
	fp, ok := t.activeFiles[fileName]
	if !ok {
		t.mu.Unlock()
		return
	}
	delete(t.activeFiles, fileName)
	fp.DownloadedBytes = fp.FileSize
	fp.Status = model.FileCompleted
	t.completedBytes += fp.DownloadedBytes
	t.completedFiles = append(t.completedFiles, *fp)
	t.mu.Unlock()
	t.notifyListeners()
}

// OnFileError marks a file failed. Its partial bytes still count toward the
// completed tally and the remaining files keep going; only an explicit
// OnError fails the whole task.
func (t *Task) OnFileError(fileName string, err error) {
	t.mu.Lock()
	fp, ok := t.activeFiles[fileName]
	if !ok {
		t.mu.Unlock()
		return
	}
	delete(t.activeFiles, fileName)
	fp.Status = model.FileFailed
	t.completedBytes += fp.DownloadedBytes
	t.completedFiles = append(t.completedFiles, *fp)
	t.mu.Unlock()
	logger.Warn("file download failed", zap.String("task_id", t.ID), zap.String("file", fileName), zap.Error(err))
	t.notifyListeners()
}

// OnProcessing moves to PROCESSING for the merge phase
func (t *Task) OnProcessing() {
	t.mu.Lock()
	if t.status.IsTerminal() {
		t.mu.Unlock()
		return
	}
	t.status = model.DownloadProcessing
	t.mu.Unlock()
	t.notifyListeners()
}

// OnComplete transitions to COMPLETED with the result location
func (t *Task) OnComplete(resultPath string) {
	t.transitionTerminal(model.DownloadCompleted, "", resultPath)
}

// OnError transitions to FAILED
func (t *Task) OnError(err error) {
	t.transitionTerminal(model.DownloadFailed, err.Error(), "")
}

// Cancel requests cooperative cancellation. The first call wins; later calls
// and calls on an already-terminal task return false. Setting the flag and the
// terminal transition happen under one lock so a concurrent OnComplete can
// never overtake a Cancel that returned true.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	if t.cancelled || t.status.IsTerminal() {
		t.mu.Unlock()
		return false
	}
	t.cancelled = true
	t.status = model.DownloadCancelled
	now := time.Now()
	t.completedAt = &now
	t.mu.Unlock()
	t.notifyListeners()
	return true
}

// Cancelled reports whether cancellation was requested. Transfer workers poll
// this between chunks.
func (t *Task) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Status retrieves the current status
func (t *Task) Status() model.DownloadTaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// ResultPath retrieves the result location of a completed task
func (t *Task) ResultPath() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resultPath
}

// CompletedAt retrieves the terminal-transition time, nil while running
func (t *Task) CompletedAt() *time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completedAt
}

// Snapshot builds a consistent progress view
func (t *Task) Snapshot() model.DownloadProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Task) snapshotLocked() model.DownloadProgress {
	downloaded := t.completedBytes
	active := make([]model.FileProgress, 0, len(t.activeFiles))
	for _, fp := range t.activeFiles {
		downloaded += fp.DownloadedBytes
		active = append(active, *fp)
	}

	percent := 0
	if t.totalBytes > 0 {
		percent = int(downloaded * 100 / t.totalBytes)
		if percent > 100 {
			percent = 100
		}
	}

	return model.DownloadProgress{
		TaskID:             t.ID,
		SessionID:          t.SessionID,
		Status:             t.status,
		TotalFiles:         t.totalFiles,
		CompletedFiles:     len(t.completedFiles),
		ActiveDownloads:    active,
		CompletedDownloads: append([]model.FileProgress(nil), t.completedFiles...),
		TotalBytes:         t.totalBytes,
		DownloadedBytes:    downloaded,
		PercentComplete:    percent,
		ErrorMessage:       t.errorMessage,
		StartedAt:          t.startedAt,
		CompletedAt:        t.completedAt,
	}
}

// AddListener registers a listener and immediately pushes the current state
// so a new observer never waits for the next event. The returned id
// unregisters it via RemoveListener.
func (t *Task) AddListener(listener ProgressListener) int64 {
	t.mu.Lock()
	t.nextListenerID++
	id := t.nextListenerID
	t.listeners[id] = listener
	snapshot := t.snapshotLocked()
	t.mu.Unlock()
	safeNotify(listener, snapshot, t.ID)
	return id
}

// RemoveListener unregisters a listener. Unknown ids are a no-op.
func (t *Task) RemoveListener(id int64) {
	t.mu.Lock()
	delete(t.listeners, id)
	t.mu.Unlock()
}

func (t *Task) transitionTerminal(status model.DownloadTaskStatus, errorMessage, resultPath string) {
	t.mu.Lock()
	if t.status.IsTerminal() {
		t.mu.Unlock()
		return
	}
	t.status = status
	t.errorMessage = errorMessage
	t.resultPath = resultPath
	now := time.Now()
	t.completedAt = &now
	t.mu.Unlock()
	t.notifyListeners()
}

func (t *Task) notifyListeners() {
	t.mu.Lock()
	listeners := make([]ProgressListener, 0, len(t.listeners))
	for _, listener := range t.listeners {
		listeners = append(listeners, listener)
	}
	snapshot := t.snapshotLocked()
	t.mu.Unlock()
	for _, listener := range listeners {
		safeNotify(listener, snapshot, t.ID)
	}
}

// safeNotify delivers one snapshot; a panicking listener must not prevent
// delivery to the others.
func safeNotify(listener ProgressListener, snapshot model.DownloadProgress, taskID string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("progress listener panicked", zap.String("task_id", taskID), zap.Any("panic", r))
		}
	}()
	listener(snapshot)
}
