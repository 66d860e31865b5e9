package repository

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"jfrhub/internal/model"
	storemodel "jfrhub/pkg/store/mysql/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	rows []*storemodel.RecordingSession
}

func (f *fakeSessions) ListByProject(_ context.Context, projectID string) ([]*storemodel.RecordingSession, error) {
	var out []*storemodel.RecordingSession
	for _, row := range f.rows {
		if row.ProjectID == projectID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OriginCreatedAt.After(out[j].OriginCreatedAt)
	})
	return out, nil
}

func (f *fakeSessions) Get(_ context.Context, id string) (*storemodel.RecordingSession, error) {
	for _, row := range f.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return nil, nil
}

func newTestStorage(t *testing.T, rows ...*storemodel.RecordingSession) (*FilesystemStorage, string) {
	t.Helper()
	root := t.TempDir()
	storage := NewFilesystemStorage(root, &fakeSessions{rows: rows}, 10*time.Minute)
	for _, row := range rows {
		require.NoError(t, os.MkdirAll(filepath.Join(root, row.RelativeSessionPath), 0o755))
	}
	return storage, root
}

func sessionRow(id, projectID string, createdAt time.Time) *storemodel.RecordingSession {
	return &storemodel.RecordingSession{
		ID:                  id,
		ProjectID:           projectID,
		InstanceID:          "inst-1",
		RelativeSessionPath: filepath.Join("ws-1", projectID, id),
		OriginCreatedAt:     createdAt,
		CreatedAt:           createdAt,
	}
}

func writeSessionFile(t *testing.T, root string, row *storemodel.RecordingSession, name string, content []byte, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(root, row.RelativeSessionPath, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return path
}

func TestSessionStatusWithSentinel(t *testing.T) {
	now := time.Now()
	row := sessionRow("s1", "p1", now.Add(-time.Hour))
	row.DetectionFile = ".finished"
	storage, root := newTestStorage(t, row)

	// No sentinel yet: still recording.
	assert.Equal(t, model.StatusActive, storage.SessionStatus(row))

	// Fresh sentinel: agent may still be flushing.
	writeSessionFile(t, root, row, ".finished", nil, now)
	assert.Equal(t, model.StatusActive, storage.SessionStatus(row))

	// Sentinel older than the grace period: finished.
	writeSessionFile(t, root, row, ".finished", nil, now.Add(-time.Hour))
	assert.Equal(t, model.StatusFinished, storage.SessionStatus(row))
}

func TestSessionStatusByInactivity(t *testing.T) {
	now := time.Now()
	row := sessionRow("s1", "p1", now.Add(-time.Hour))
	storage, root := newTestStorage(t, row)

	// Empty directory gives no signal at all.
	assert.Equal(t, model.StatusUnknown, storage.SessionStatus(row))

	writeSessionFile(t, root, row, "recording-1.jfr", []byte("data"), now)
	assert.Equal(t, model.StatusActive, storage.SessionStatus(row))

	writeSessionFile(t, root, row, "recording-1.jfr", []byte("data"), now.Add(-time.Hour))
	assert.Equal(t, model.StatusFinished, storage.SessionStatus(row))
}

func TestListSessionsOnlyLatestMayBeActive(t *testing.T) {
	now := time.Now()
	older := sessionRow("s1", "p1", now.Add(-2*time.Hour))
	newer := sessionRow("s2", "p1", now.Add(-time.Minute))
	storage, root := newTestStorage(t, older, newer)

	// Both directories show recent activity.
	writeSessionFile(t, root, older, "recording-1.jfr", []byte("old"), now)
	writeSessionFile(t, root, newer, "recording-1.jfr", []byte("new"), now)

	sessions, err := storage.ListSessions(context.Background(), "p1", false)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s2", sessions[0].ID)
	assert.Equal(t, model.StatusActive, sessions[0].Status)
	assert.Equal(t, model.StatusFinished, sessions[1].Status)
}

func TestCompressSessionSkipsUnfinishedFiles(t *testing.T) {
	now := time.Now()
	row := sessionRow("s1", "p1", now.Add(-time.Hour))
	storage, root := newTestStorage(t, row)

	finished := writeSessionFile(t, root, row, "recording-1.jfr", []byte("finished data"), now.Add(-time.Hour))
	live := writeSessionFile(t, root, row, "recording-2.jfr", []byte("still written"), now)

	require.NoError(t, storage.CompressSession(context.Background(), "s1"))

	_, err := os.Stat(finished + ".lz4")
	assert.NoError(t, err)
	_, err = os.Stat(finished)
	assert.True(t, os.IsNotExist(err))

	// The live file is untouched.
	_, err = os.Stat(live)
	assert.NoError(t, err)
	_, err = os.Stat(live + ".lz4")
	assert.True(t, os.IsNotExist(err))
}

func TestRecordingsCompressOnRead(t *testing.T) {
	now := time.Now()
	finishedAt := now.Add(-time.Hour)
	row := sessionRow("s1", "p1", now.Add(-2*time.Hour))
	row.FinishedAt = &finishedAt
	storage, root := newTestStorage(t, row)

	writeSessionFile(t, root, row, "recording-1.jfr", []byte("payload"), finishedAt)
	writeSessionFile(t, root, row, "dump.hprof", []byte("heap"), finishedAt)

	recordings, err := storage.Recordings(context.Background(), "s1", nil)
	require.NoError(t, err)
	require.Len(t, recordings, 1)
	assert.Equal(t, model.FileTypeJFRLZ4, recordings[0].FileType)
	assert.Equal(t, "recording-1.jfr.lz4", recordings[0].Name)
	assert.Positive(t, recordings[0].Size)
}

func TestMergeRecordingsRoundTrip(t *testing.T) {
	now := time.Now()
	finishedAt := now.Add(-time.Hour)
	row := sessionRow("s1", "p1", now.Add(-2*time.Hour))
	row.FinishedAt = &finishedAt
	storage, root := newTestStorage(t, row)

	writeSessionFile(t, root, row, "recording-1.jfr", []byte("first-chunk|"), finishedAt.Add(-time.Minute))
	writeSessionFile(t, root, row, "recording-2.jfr", []byte("second-chunk"), finishedAt)

	merged, err := storage.MergeRecordings(context.Background(), "s1", nil)
	require.NoError(t, err)
	defer merged.Close()

	content, err := os.ReadFile(merged.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("first-chunk|second-chunk"), content)
	assert.Equal(t, int64(len(content)), merged.Size)

	require.NoError(t, merged.Close())
	_, err = os.Stat(merged.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestMergeRecordingsNoFiles(t *testing.T) {
	now := time.Now()
	finishedAt := now.Add(-time.Hour)
	row := sessionRow("s1", "p1", now.Add(-2*time.Hour))
	row.FinishedAt = &finishedAt
	storage, _ := newTestStorage(t, row)

	_, err := storage.MergeRecordings(context.Background(), "s1", nil)
	assert.ErrorIs(t, err, ErrNoRecordings)
}

func TestArtifactsAndDeleteFiles(t *testing.T) {
	now := time.Now()
	finishedAt := now.Add(-time.Hour)
	row := sessionRow("s1", "p1", now.Add(-2*time.Hour))
	row.FinishedAt = &finishedAt
	storage, root := newTestStorage(t, row)

	writeSessionFile(t, root, row, "recording-1.jfr", []byte("rec"), finishedAt)
	dump := writeSessionFile(t, root, row, "dump.hprof", []byte("heap"), finishedAt)
	writeSessionFile(t, root, row, "gc.log", []byte("log"), finishedAt)

	artifacts, err := storage.Artifacts(context.Background(), "s1", nil)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	require.NoError(t, storage.DeleteRepositoryFiles(context.Background(), "s1", []string{"dump.hprof"}))
	_, err = os.Stat(dump)
	assert.True(t, os.IsNotExist(err))

	// Deleting an already-deleted file is a no-op.
	assert.NoError(t, storage.DeleteRepositoryFiles(context.Background(), "s1", []string{"dump.hprof"}))
}

func TestDeleteSessionRemovesDirectory(t *testing.T) {
	now := time.Now()
	row := sessionRow("s1", "p1", now.Add(-time.Hour))
	storage, root := newTestStorage(t, row)
	writeSessionFile(t, root, row, "recording-1.jfr", []byte("rec"), now)

	require.NoError(t, storage.DeleteSession(context.Background(), "s1"))
	_, err := os.Stat(filepath.Join(root, row.RelativeSessionPath))
	assert.True(t, os.IsNotExist(err))

	// Unknown session is a no-op.
	assert.NoError(t, storage.DeleteSession(context.Background(), "missing"))
}

func TestSingleSessionNotFound(t *testing.T) {
	storage, _ := newTestStorage(t)
	session, err := storage.SingleSession(context.Background(), "absent", true)
	require.NoError(t, err)
	assert.Nil(t, session)
}
