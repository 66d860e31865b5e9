package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"jfrhub/internal/model"
	"jfrhub/pkg/logger"
)

const copyChunkSize = 256 * 1024

// execute runs one download task to a terminal state. Each selected recording
// is copied into the task's own directory in parallel; a single failing file
// does not fail the task. With merge requested, the copied recordings are
// additionally combined into one file.
func (m *Manager) execute(ctx context.Context, task *Task) {
	recordings, err := m.storage.Recordings(ctx, task.SessionID, task.FileIDs)
	if err != nil {
		task.OnError(fmt.Errorf("failed to resolve recordings: %w", err))
		return
	}
	if len(recordings) == 0 {
		task.OnError(errors.New("session has no downloadable recordings"))
		return
	}

	destDir := filepath.Join(m.opts.TempDir, task.ID)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		task.OnError(fmt.Errorf("failed to create download directory: %w", err))
		return
	}

	var totalBytes int64
	for _, file := range recordings {
		totalBytes += file.Size
	}
	task.OnStart(len(recordings), totalBytes)

	var wg sync.WaitGroup
	sem := make(chan struct{}, m.opts.Parallelism)
	var completedCount int64
	var countMu sync.Mutex

	for _, file := range recordings {
		wg.Add(1)
		go func(file model.RepositoryFile) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if task.Cancelled() || ctx.Err() != nil {
				return
			}
			task.OnFileStart(file.Name, file.Size)
			if err := m.copyFile(ctx, task, file, filepath.Join(destDir, file.Name)); err != nil {
				// A cancelled copy is neither complete nor failed; the whole
				// directory is discarded below.
				if !errors.Is(err, context.Canceled) {
					task.OnFileError(file.Name, err)
				}
				return
			}
			task.OnFileComplete(file.Name)
			countMu.Lock()
			completedCount++
			countMu.Unlock()
		}(file)
	}
	wg.Wait()

	if task.Cancelled() || ctx.Err() != nil {
		os.RemoveAll(destDir)
		// Cancel already drove the terminal transition; a manager shutdown
		// has not.
		task.transitionTerminal(model.DownloadCancelled, "", "")
		return
	}

	if completedCount == 0 {
		os.RemoveAll(destDir)
		task.OnError(errors.New("all file downloads failed"))
		return
	}

	if !task.Merge {
		task.OnComplete(destDir)
		return
	}

	task.OnProcessing()
	merged, err := m.storage.MergeRecordings(ctx, task.SessionID, task.FileIDs)
	if err != nil {
		task.OnError(fmt.Errorf("failed to merge recordings: %w", err))
		return
	}
	defer merged.Close()

	mergedPath := filepath.Join(destDir, "merged-recording.jfr")
	if err := os.Rename(merged.Path, mergedPath); err != nil {
		// Rename fails across filesystems; fall back to a copy.
		if copyErr := copyPath(merged.Path, mergedPath); copyErr != nil {
			task.OnError(fmt.Errorf("failed to place merged recording: %w", copyErr))
			return
		}
	}
	task.OnComplete(mergedPath)
}

// copyFile copies one recording in chunks, reporting progress and honouring
// cancellation between chunks. A copy cut short by cancellation returns
// context.Canceled so the caller never records the partial file as complete.
func (m *Manager) copyFile(ctx context.Context, task *Task, file model.RepositoryFile, dst string) error {
	in, err := os.Open(file.Path)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	defer out.Close()

	buf := make([]byte, copyChunkSize)
	var copied int64
	for {
		if task.Cancelled() {
			return context.Canceled
		}
		if err := ctx.Err(); err != nil {
			return context.Canceled
		}

		n, readErr := in.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("failed to write chunk: %w", writeErr)
			}
			copied += int64(n)
			task.OnFileProgress(file.Name, copied)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("failed to read chunk: %w", readErr)
		}
	}

	if err := out.Sync(); err != nil {
		logger.DebugCtx(ctx, "fsync of %s failed: %v", dst, err)
	}
	return nil
}

func copyPath(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
