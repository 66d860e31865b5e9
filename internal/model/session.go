package model

import (
	"strings"
	"time"
)

// RecordingStatus session status derived at read time, never stored
type RecordingStatus string

const (
	StatusActive   RecordingStatus = "ACTIVE"
	StatusFinished RecordingStatus = "FINISHED"
	StatusUnknown  RecordingStatus = "UNKNOWN"
)

// RepositoryFileType classification of a file in a session directory
type RepositoryFileType string

const (
	FileTypeJFR        RepositoryFileType = "JFR"
	FileTypeJFRLZ4     RepositoryFileType = "JFR_LZ4"
	FileTypeHeapDump   RepositoryFileType = "HEAP_DUMP"
	FileTypeHeapDumpGz RepositoryFileType = "HEAP_DUMP_GZ"
	FileTypeJVMLog     RepositoryFileType = "JVM_LOG"
	FileTypeErrorLog   RepositoryFileType = "ERROR_LOG"
	FileTypeOther      RepositoryFileType = "OTHER"
)

// ClassifyFile derives the file type from a filename.
func ClassifyFile(name string) RepositoryFileType {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".jfr.lz4"):
		return FileTypeJFRLZ4
	case strings.HasSuffix(lower, ".jfr"):
		return FileTypeJFR
	case strings.HasSuffix(lower, ".hprof.gz"):
		return FileTypeHeapDumpGz
	case strings.HasSuffix(lower, ".hprof"):
		return FileTypeHeapDump
	case strings.HasPrefix(lower, "hs_err") && strings.HasSuffix(lower, ".log"):
		return FileTypeErrorLog
	case strings.HasSuffix(lower, ".log"):
		return FileTypeJVMLog
	default:
		return FileTypeOther
	}
}

// IsRecording reports whether the type is a recording eligible for merge.
func (t RepositoryFileType) IsRecording() bool {
	return t == FileTypeJFR || t == FileTypeJFRLZ4
}

// IsCompressible reports whether the type is an uncompressed recording.
func (t RepositoryFileType) IsCompressible() bool {
	return t == FileTypeJFR
}

// RepositoryFile one file inside a recording session directory.
// IsFinished=false means an external writer may still append to the file; it
// must never be compressed or merged.
type RepositoryFile struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	FileType   RepositoryFileType `json:"file_type"`
	Size       int64              `json:"size"`
	CreatedAt  time.Time          `json:"created_at"`
	IsFinished bool               `json:"is_finished"`
	Path       string             `json:"-"`
}

// RecordingSession one continuous recording run. Status is derived by the
// repository storage at read time (only the latest session of a project may
// be ACTIVE or UNKNOWN, all older ones are FINISHED by construction).
type RecordingSession struct {
	ID               string           `json:"id"`
	ProjectID        string           `json:"project_id"`
	InstanceID       string           `json:"instance_id,omitempty"`
	RelativePath     string           `json:"relative_path"`
	ProfilerSettings string           `json:"profiler_settings,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	FinishedAt       *time.Time       `json:"finished_at,omitempty"`
	Status           RecordingStatus  `json:"status"`
	Files            []RepositoryFile `json:"files,omitempty"`
}

// RecordingFiles returns the files eligible for merge/download.
func (s RecordingSession) RecordingFiles() []RepositoryFile {
	var out []RepositoryFile
	for _, f := range s.Files {
		if f.FileType.IsRecording() {
			out = append(out, f)
		}
	}
	return out
}
