package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jfrhub/internal/model"
	"jfrhub/pkg/compress"
	"jfrhub/pkg/logger"
	storemodel "jfrhub/pkg/store/mysql/model"

	"go.uber.org/zap"
)

// ErrSessionNotFound is returned when the referenced session does not exist
var ErrSessionNotFound = errors.New("session not found")

// SessionSource provides recording session rows. Implemented by the mysql
// session repository.
type SessionSource interface {
	ListByProject(ctx context.Context, projectID string) ([]*storemodel.RecordingSession, error)
	Get(ctx context.Context, id string) (*storemodel.RecordingSession, error)
}

// Storage is the repository-side view of recording sessions and their files
type Storage interface {
	// ListSessions retrieves all sessions of a project, newest first, with
	// derived status.
	ListSessions(ctx context.Context, projectID string, withFiles bool) ([]model.RecordingSession, error)

	// SingleSession retrieves one session with derived status
	SingleSession(ctx context.Context, sessionID string, withFiles bool) (*model.RecordingSession, error)

	// Recordings retrieves the finished recording files of a session,
	// compressing any that are still uncompressed. An empty fileIDs selects
	// all recordings.
	Recordings(ctx context.Context, sessionID string, fileIDs []string) ([]model.RepositoryFile, error)

	// MergeRecordings combines the selected recordings into one scoped
	// temporary file. The caller must Close the result.
	MergeRecordings(ctx context.Context, sessionID string, fileIDs []string) (*MergedRecording, error)

	// Artifacts retrieves non-recording files (heap dumps, logs) of a session
	Artifacts(ctx context.Context, sessionID string, fileIDs []string) ([]model.RepositoryFile, error)

	// DeleteRepositoryFiles removes the named files from the session directory
	DeleteRepositoryFiles(ctx context.Context, sessionID string, fileIDs []string) error

	// DeleteSession removes the whole session directory
	DeleteSession(ctx context.Context, sessionID string) error

	// CompressSession compresses every eligible file of a session, stopping
	// at the first failure.
	CompressSession(ctx context.Context, sessionID string) error
}

// FilesystemStorage implements Storage over a local workspaces directory.
// Session metadata comes from the database; files and liveness signals come
// from the session directory itself.
type FilesystemStorage struct {
	root        string
	sessions    SessionSource
	gracePeriod time.Duration
	now         func() time.Time
}

// NewFilesystemStorage creates a storage rooted at the workspaces directory
func NewFilesystemStorage(root string, sessions SessionSource, gracePeriod time.Duration) *FilesystemStorage {
	return &FilesystemStorage{
		root:        root,
		sessions:    sessions,
		gracePeriod: gracePeriod,
		now:         time.Now,
	}
}

// ListSessions retrieves all sessions of a project, newest first
func (s *FilesystemStorage) ListSessions(ctx context.Context, projectID string, withFiles bool) ([]model.RecordingSession, error) {
	rows, err := s.sessions.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]model.RecordingSession, 0, len(rows))
	for i, row := range rows {
		// Only the newest session of a project may be ACTIVE or UNKNOWN.
		// Rows are ordered newest first, so everything past index 0 is
		// forced FINISHED regardless of filesystem signals.
		sessions = append(sessions, s.buildSession(row, i == 0, withFiles))
	}
	return sessions, nil
}

// SingleSession retrieves one session with derived status, nil when absent
func (s *FilesystemStorage) SingleSession(ctx context.Context, sessionID string, withFiles bool) (*model.RecordingSession, error) {
	row, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	latest, err := s.isLatest(ctx, row)
	if err != nil {
		return nil, err
	}
	session := s.buildSession(row, latest, withFiles)
	return &session, nil
}

// SessionStatus derives the status of a single session row from filesystem
// signals. Used by the finished-session detector, which already knows the row
// is unfinished.
func (s *FilesystemStorage) SessionStatus(row *storemodel.RecordingSession) model.RecordingStatus {
	if row.FinishedAt != nil {
		return model.StatusFinished
	}
	dir := s.sessionDir(row)
	if row.DetectionFile != "" {
		return detectWithSentinel(dir, row.DetectionFile, s.gracePeriod, s.now())
	}
	return detectByInactivity(dir, s.gracePeriod, s.now())
}

// Recordings retrieves finished recording files, compressing as needed
func (s *FilesystemStorage) Recordings(ctx context.Context, sessionID string, fileIDs []string) ([]model.RepositoryFile, error) {
	session, err := s.SingleSession(ctx, sessionID, true)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	selected := selectFiles(session.RecordingFiles(), fileIDs)
	out := make([]model.RepositoryFile, 0, len(selected))
	for _, file := range selected {
		if !file.IsFinished {
			continue
		}
		if file.FileType.IsCompressible() {
			compressed, err := compress.EnsureCompressed(ctx, file.Path)
			if err != nil {
				return nil, fmt.Errorf("failed to compress recording %s: %w", file.Name, err)
			}
			file.Path = compressed
			file.Name = filepath.Base(compressed)
			file.FileType = model.FileTypeJFRLZ4
			if info, statErr := os.Stat(compressed); statErr == nil {
				file.Size = info.Size()
			}
		}
		out = append(out, file)
	}
	return out, nil
}

// Artifacts retrieves the non-recording files of a session
func (s *FilesystemStorage) Artifacts(ctx context.Context, sessionID string, fileIDs []string) ([]model.RepositoryFile, error) {
	session, err := s.SingleSession(ctx, sessionID, true)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	var artifacts []model.RepositoryFile
	for _, file := range session.Files {
		if !file.FileType.IsRecording() {
			artifacts = append(artifacts, file)
		}
	}
	return selectFiles(artifacts, fileIDs), nil
}

// DeleteRepositoryFiles removes the named files from the session directory.
// Missing files are ignored.
func (s *FilesystemStorage) DeleteRepositoryFiles(ctx context.Context, sessionID string, fileIDs []string) error {
	row, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrSessionNotFound
	}

	dir := s.sessionDir(row)
	for _, id := range fileIDs {
		path := filepath.Join(dir, filepath.Base(id))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete repository file %s: %w", id, err)
		}
	}
	return nil
}

// DeleteSession removes the session directory with everything in it.
// Idempotent: a missing directory is not an error.
func (s *FilesystemStorage) DeleteSession(ctx context.Context, sessionID string) error {
	row, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if row == nil {
		return nil
	}
	if err := os.RemoveAll(s.sessionDir(row)); err != nil {
		return fmt.Errorf("failed to delete session directory: %w", err)
	}
	return nil
}

// CompressSession compresses all finished uncompressed recordings of a
// session. Stops at the first failure so a systemic storage problem is not
// masked by best-effort semantics.
func (s *FilesystemStorage) CompressSession(ctx context.Context, sessionID string) error {
	session, err := s.SingleSession(ctx, sessionID, true)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}

	for _, file := range session.Files {
		if !file.IsFinished || !file.FileType.IsCompressible() {
			continue
		}
		if _, err := compress.EnsureCompressed(ctx, file.Path); err != nil {
			return fmt.Errorf("failed to compress %s: %w", file.Name, err)
		}
	}
	return nil
}

func (s *FilesystemStorage) sessionDir(row *storemodel.RecordingSession) string {
	return filepath.Join(s.root, filepath.FromSlash(row.RelativeSessionPath))
}

func (s *FilesystemStorage) isLatest(ctx context.Context, row *storemodel.RecordingSession) (bool, error) {
	rows, err := s.sessions.ListByProject(ctx, row.ProjectID)
	if err != nil {
		return false, err
	}
	return len(rows) > 0 && rows[0].ID == row.ID, nil
}

func (s *FilesystemStorage) buildSession(row *storemodel.RecordingSession, latest, withFiles bool) model.RecordingSession {
	status := model.StatusFinished
	if row.FinishedAt == nil && latest {
		status = s.SessionStatus(row)
	}

	session := model.RecordingSession{
		ID:               row.ID,
		ProjectID:        row.ProjectID,
		InstanceID:       row.InstanceID,
		RelativePath:     row.RelativeSessionPath,
		ProfilerSettings: row.ProfilerSettings,
		CreatedAt:        row.OriginCreatedAt,
		FinishedAt:       row.FinishedAt,
		Status:           status,
	}
	if withFiles {
		session.Files = s.listFiles(row, status)
	}
	return session
}

func (s *FilesystemStorage) listFiles(row *storemodel.RecordingSession, status model.RecordingStatus) []model.RepositoryFile {
	dir := s.sessionDir(row)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read session directory", zap.String("dir", dir), zap.Error(err))
		}
		return nil
	}

	now := s.now()
	var files []model.RepositoryFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		name := entry.Name()
		if row.DetectionFile != "" && name == row.DetectionFile {
			continue
		}
		fileType := model.ClassifyFile(name)
		files = append(files, model.RepositoryFile{
			ID:         name,
			Name:       name,
			FileType:   fileType,
			Size:       info.Size(),
			CreatedAt:  info.ModTime(),
			IsFinished: isFileFinished(status, fileType, info.ModTime(), now, s.gracePeriod),
			Path:       filepath.Join(dir, name),
		})
	}
	return files
}

// isFileFinished decides whether an external writer may still append to the
// file. Compressed files and files of finished sessions are immutable; for an
// active session a file counts as finished once it has been quiet for the
// grace period.
func isFileFinished(status model.RecordingStatus, fileType model.RepositoryFileType, modTime, now time.Time, grace time.Duration) bool {
	if status == model.StatusFinished {
		return true
	}
	if fileType == model.FileTypeJFRLZ4 || fileType == model.FileTypeHeapDumpGz {
		return true
	}
	return now.Sub(modTime) >= grace
}

func selectFiles(files []model.RepositoryFile, fileIDs []string) []model.RepositoryFile {
	if len(fileIDs) == 0 {
		return files
	}
	wanted := make(map[string]struct{}, len(fileIDs))
	for _, id := range fileIDs {
		wanted[id] = struct{}{}
	}
	var out []model.RepositoryFile
	for _, f := range files {
		if _, ok := wanted[f.ID]; ok {
			out = append(out, f)
		}
	}
	return out
}
