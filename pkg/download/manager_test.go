package download

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jfrhub/internal/model"
	"jfrhub/pkg/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStorage serves a single in-memory session backed by real temp files
type stubStorage struct {
	session    *model.RecordingSession
	recordings []model.RepositoryFile
	mergedData []byte
}

func (s *stubStorage) ListSessions(context.Context, string, bool) ([]model.RecordingSession, error) {
	if s.session == nil {
		return nil, nil
	}
	return []model.RecordingSession{*s.session}, nil
}

func (s *stubStorage) SingleSession(_ context.Context, sessionID string, _ bool) (*model.RecordingSession, error) {
	if s.session == nil || s.session.ID != sessionID {
		return nil, nil
	}
	return s.session, nil
}

func (s *stubStorage) Recordings(context.Context, string, []string) ([]model.RepositoryFile, error) {
	return s.recordings, nil
}

func (s *stubStorage) MergeRecordings(context.Context, string, []string) (*repository.MergedRecording, error) {
	out, err := os.CreateTemp("", "merged-*.jfr")
	if err != nil {
		return nil, err
	}
	if _, err := out.Write(s.mergedData); err != nil {
		out.Close()
		return nil, err
	}
	out.Close()
	return &repository.MergedRecording{Path: out.Name(), Size: int64(len(s.mergedData))}, nil
}

func (s *stubStorage) Artifacts(context.Context, string, []string) ([]model.RepositoryFile, error) {
	return nil, nil
}

func (s *stubStorage) DeleteRepositoryFiles(context.Context, string, []string) error { return nil }
func (s *stubStorage) DeleteSession(context.Context, string) error                   { return nil }
func (s *stubStorage) CompressSession(context.Context, string) error                 { return nil }

func newStubStorage(t *testing.T, fileContents map[string][]byte) *stubStorage {
	t.Helper()
	dir := t.TempDir()
	storage := &stubStorage{
		session:    &model.RecordingSession{ID: "s1", ProjectID: "p1", Status: model.StatusFinished},
		mergedData: []byte("merged"),
	}
	for name, content := range fileContents {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, content, 0o644))
		storage.recordings = append(storage.recordings, model.RepositoryFile{
			ID:         name,
			Name:       name,
			FileType:   model.FileTypeJFRLZ4,
			Size:       int64(len(content)),
			IsFinished: true,
			Path:       path,
		})
	}
	return storage
}

func waitForTerminal(t *testing.T, m *Manager, taskID string) model.DownloadProgress {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		progress, ok := m.GetProgress(taskID)
		require.True(t, ok)
		if progress.Status.IsTerminal() {
			return progress
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("task never reached a terminal status")
	return model.DownloadProgress{}
}

func TestManagerDownloadsFiles(t *testing.T) {
	storage := newStubStorage(t, map[string][]byte{
		"a.jfr.lz4": bytes.Repeat([]byte("a"), 4096),
		"b.jfr.lz4": bytes.Repeat([]byte("b"), 2048),
	})
	m := NewManager(storage, Options{TempDir: t.TempDir()})
	m.Start()
	defer m.Stop()

	task, err := m.CreateTask(context.Background(), "s1", nil, false)
	require.NoError(t, err)
	require.NoError(t, m.StartDownload(task.ID))

	progress := waitForTerminal(t, m, task.ID)
	assert.Equal(t, model.DownloadCompleted, progress.Status)
	assert.Equal(t, 2, progress.CompletedFiles)
	assert.Equal(t, int64(6144), progress.DownloadedBytes)
	assert.Equal(t, 100, progress.PercentComplete)

	entries, err := os.ReadDir(task.ResultPath())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestManagerMergesOnRequest(t *testing.T) {
	storage := newStubStorage(t, map[string][]byte{
		"a.jfr.lz4": []byte("part-a"),
	})
	m := NewManager(storage, Options{TempDir: t.TempDir()})
	m.Start()
	defer m.Stop()

	task, err := m.CreateTask(context.Background(), "s1", nil, true)
	require.NoError(t, err)
	require.NoError(t, m.StartDownload(task.ID))

	progress := waitForTerminal(t, m, task.ID)
	require.Equal(t, model.DownloadCompleted, progress.Status)

	content, err := os.ReadFile(task.ResultPath())
	require.NoError(t, err)
	assert.Equal(t, []byte("merged"), content)
}

func TestCreateTaskUnknownSession(t *testing.T) {
	m := NewManager(&stubStorage{}, Options{TempDir: t.TempDir()})
	_, err := m.CreateTask(context.Background(), "missing", nil, false)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestCancelUnknownTask(t *testing.T) {
	m := NewManager(&stubStorage{}, Options{TempDir: t.TempDir()})
	assert.False(t, m.CancelDownload("nope"))
}

func TestCancelledCopyNeverCompletesFile(t *testing.T) {
	storage := newStubStorage(t, map[string][]byte{
		"a.jfr.lz4": bytes.Repeat([]byte("a"), 4096),
	})
	m := NewManager(storage, Options{TempDir: t.TempDir()})

	task, err := m.CreateTask(context.Background(), "s1", nil, false)
	require.NoError(t, err)
	task.OnStart(1, 4096)
	task.OnFileStart("a.jfr.lz4", 4096)
	require.True(t, task.Cancel())

	dst := filepath.Join(t.TempDir(), "a.jfr.lz4")
	err = m.copyFile(context.Background(), task, storage.recordings[0], dst)
	require.ErrorIs(t, err, context.Canceled)

	// The cut-short file must not appear completed nor count its declared
	// size as downloaded.
	snapshot := task.Snapshot()
	assert.Empty(t, snapshot.CompletedDownloads)
	assert.Zero(t, snapshot.DownloadedBytes)
}

func TestCancelledExecuteDiscardsPartialFiles(t *testing.T) {
	storage := newStubStorage(t, map[string][]byte{
		"a.jfr.lz4": bytes.Repeat([]byte("a"), 2048),
		"b.jfr.lz4": bytes.Repeat([]byte("b"), 2048),
	})
	m := NewManager(storage, Options{TempDir: t.TempDir()})

	task, err := m.CreateTask(context.Background(), "s1", nil, false)
	require.NoError(t, err)
	require.True(t, task.Cancel())

	m.execute(context.Background(), task)

	snapshot := task.Snapshot()
	assert.Equal(t, model.DownloadCancelled, snapshot.Status)
	assert.Zero(t, snapshot.CompletedFiles)
	_, err = os.Stat(filepath.Join(m.opts.TempDir, task.ID))
	assert.True(t, os.IsNotExist(err))
}

func TestSweepRemovesExpiredTerminalTasks(t *testing.T) {
	storage := newStubStorage(t, map[string][]byte{"a.jfr.lz4": []byte("x")})
	m := NewManager(storage, Options{TempDir: t.TempDir(), CompletedTaskTTL: time.Minute})

	task, err := m.CreateTask(context.Background(), "s1", nil, false)
	require.NoError(t, err)
	task.OnComplete("/tmp/done")

	// Still present before the TTL elapses.
	m.sweep(time.Now())
	_, ok := m.GetProgress(task.ID)
	assert.True(t, ok)

	m.sweep(time.Now().Add(2 * time.Minute))
	_, ok = m.GetProgress(task.ID)
	assert.False(t, ok)

	// Non-terminal tasks are never swept.
	running, err := m.CreateTask(context.Background(), "s1", nil, false)
	require.NoError(t, err)
	m.sweep(time.Now().Add(time.Hour))
	_, ok = m.GetProgress(running.ID)
	assert.True(t, ok)
}
