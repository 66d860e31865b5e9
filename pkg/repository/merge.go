package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"jfrhub/internal/model"
	"jfrhub/pkg/compress"
	"jfrhub/pkg/logger"
)

// ErrNoRecordings is returned when a merge request matches no recording files
var ErrNoRecordings = errors.New("no recordings to merge")

// MergedRecording is a scoped temporary file combining multiple recordings.
// Close removes it.
type MergedRecording struct {
	Path string
	Size int64
}

// Close removes the temporary merged file
func (m *MergedRecording) Close() error {
	if err := os.Remove(m.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MergeRecordings concatenates the selected recordings of a session, oldest
// first, into one temporary JFR file. Compressed parts are decompressed on
// the fly. If the streamed merge unexpectedly produces an empty file, the
// parts are copied raw as a fallback.
func (s *FilesystemStorage) MergeRecordings(ctx context.Context, sessionID string, fileIDs []string) (*MergedRecording, error) {
	recordings, err := s.Recordings(ctx, sessionID, fileIDs)
	if err != nil {
		return nil, err
	}
	if len(recordings) == 0 {
		return nil, ErrNoRecordings
	}

	// JFR files are self-delimiting chunk sequences, so chronological
	// concatenation yields a valid recording.
	sort.Slice(recordings, func(i, j int) bool {
		return recordings[i].CreatedAt.Before(recordings[j].CreatedAt)
	})

	out, err := os.CreateTemp("", "merged-recording-*.jfr")
	if err != nil {
		return nil, fmt.Errorf("failed to create merged file: %w", err)
	}

	size, err := writeMerged(out, recordings, true)
	if err == nil && size == 0 {
		logger.WarnCtx(ctx, "streamed merge of session %s produced an empty file, retrying with raw copy", sessionID)
		size, err = writeMerged(out, recordings, false)
	}
	if err != nil {
		out.Close()
		os.Remove(out.Name())
		return nil, fmt.Errorf("failed to merge recordings of session %s: %w", sessionID, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return nil, fmt.Errorf("failed to finish merged file: %w", err)
	}

	return &MergedRecording{Path: out.Name(), Size: size}, nil
}

func writeMerged(out *os.File, recordings []model.RepositoryFile, decompress bool) (int64, error) {
	if err := out.Truncate(0); err != nil {
		return 0, err
	}
	if _, err := out.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	var written int64
	for _, file := range recordings {
		var err error
		var n int64
		if decompress && file.FileType == model.FileTypeJFRLZ4 {
			n, err = appendDecompressed(out, file.Path)
		} else {
			n, err = appendRaw(out, file.Path)
		}
		if err != nil {
			return 0, err
		}
		written += n
	}
	return written, nil
}

func appendDecompressed(out *os.File, path string) (int64, error) {
	start, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	if err := compress.Decompress(path, out); err != nil {
		return 0, err
	}
	end, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	return end - start, nil
}

func appendRaw(out *os.File, path string) (int64, error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	return io.Copy(out, in)
}
