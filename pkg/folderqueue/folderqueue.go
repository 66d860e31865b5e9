package folderqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"jfrhub/pkg/logger"

	"github.com/google/uuid"
)

const processedDirName = ".processed"

// Queue is a filesystem-backed message queue. Producers drop one JSON file per
// message into the queue directory; consumers poll the directory, process the
// batch and acknowledge it, which moves the files into a .processed/ subfolder.
// Filenames start with a zero-padded unix-milli timestamp so lexicographic
// order equals publish order.
type Queue struct {
	dir string
}

// NewQueue creates a queue rooted at dir. The directory and its .processed/
// subfolder are created if absent.
func NewQueue(dir string) (*Queue, error) {
	if err := os.MkdirAll(filepath.Join(dir, processedDirName), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create queue directory: %w", err)
	}
	return &Queue{dir: dir}, nil
}

// Dir retrieves the queue directory
func (q *Queue) Dir() string {
	return q.dir
}

// Publish writes a message as a new JSON file in the queue directory
func (q *Queue) Publish(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	name := fmt.Sprintf("%013d-%s.json", time.Now().UnixMilli(), uuid.NewString())
	tmp := filepath.Join(q.dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	// Rename last so consumers never observe a half-written file.
	if err := os.Rename(tmp, filepath.Join(q.dir, name)); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Message is a polled queue entry together with its source filename
type Message[T any] struct {
	FileName string
	Payload  T
}

// Poll reads all pending messages in publish order. Files that fail to parse
// are skipped with a warning and left in place.
func Poll[T any](ctx context.Context, q *Queue) ([]Message[T], error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	messages := make([]Message[T], 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(q.dir, name))
		if err != nil {
			logger.WarnCtx(ctx, "failed to read queue message %s: %v", name, err)
			continue
		}
		var payload T
		if err := json.Unmarshal(data, &payload); err != nil {
			logger.WarnCtx(ctx, "skipping malformed queue message %s: %v", name, err)
			continue
		}
		messages = append(messages, Message[T]{FileName: name, Payload: payload})
	}
	return messages, nil
}

// Acknowledge moves the named message files into the .processed/ subfolder so
// they are never polled again. Missing files are ignored.
func (q *Queue) Acknowledge(ctx context.Context, fileNames []string) error {
	for _, name := range fileNames {
		src := filepath.Join(q.dir, name)
		dst := filepath.Join(q.dir, processedDirName, name)
		if err := os.Rename(src, dst); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to acknowledge message %s: %w", name, err)
		}
	}
	return nil
}

// Cleanup deletes processed message files older than the cutoff. Age is taken
// from the timestamp prefix of the filename, not filesystem metadata.
func (q *Queue) Cleanup(ctx context.Context, cutoff time.Time) (int, error) {
	processedDir := filepath.Join(q.dir, processedDirName)
	entries, err := os.ReadDir(processedDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read processed directory: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		publishedAt, ok := parseTimestamp(entry.Name())
		if !ok {
			logger.WarnCtx(ctx, "processed file %s has no timestamp prefix, skipping", entry.Name())
			continue
		}
		if publishedAt.Before(cutoff) {
			if err := os.Remove(filepath.Join(processedDir, entry.Name())); err != nil {
				logger.WarnCtx(ctx, "failed to remove processed file %s: %v", entry.Name(), err)
				continue
			}
			deleted++
		}
	}
	return deleted, nil
}

func parseTimestamp(fileName string) (time.Time, bool) {
	prefix, _, found := strings.Cut(fileName, "-")
	if !found {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}
