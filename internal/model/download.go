package model

import "time"

// DownloadTaskStatus state machine:
// PENDING -> DOWNLOADING -> PROCESSING -> {COMPLETED, FAILED, CANCELLED}
type DownloadTaskStatus string

const (
	DownloadPending     DownloadTaskStatus = "PENDING"
	DownloadDownloading DownloadTaskStatus = "DOWNLOADING"
	DownloadProcessing  DownloadTaskStatus = "PROCESSING"
	DownloadCompleted   DownloadTaskStatus = "COMPLETED"
	DownloadFailed      DownloadTaskStatus = "FAILED"
	DownloadCancelled   DownloadTaskStatus = "CANCELLED"
)

// IsTerminal reports whether the status is absorbing.
func (s DownloadTaskStatus) IsTerminal() bool {
	return s == DownloadCompleted || s == DownloadFailed || s == DownloadCancelled
}

// FileProgressStatus per-file transfer status
type FileProgressStatus string

const (
	FileDownloading FileProgressStatus = "DOWNLOADING"
	FileCompleted   FileProgressStatus = "COMPLETED"
	FileFailed      FileProgressStatus = "FAILED"
)

// FileProgress progress of a single file transfer
type FileProgress struct {
	FileName        string             `json:"file_name"`
	FileSize        int64              `json:"file_size"`
	DownloadedBytes int64              `json:"downloaded_bytes"`
	Status          FileProgressStatus `json:"status"`
}

// DownloadProgress snapshot of a download task, serialized to clients
// (JSON responses and SSE frames).
type DownloadProgress struct {
	TaskID             string             `json:"task_id"`
	SessionID          string             `json:"session_id"`
	Status             DownloadTaskStatus `json:"status"`
	TotalFiles         int                `json:"total_files"`
	CompletedFiles     int                `json:"completed_files"`
	ActiveDownloads    []FileProgress     `json:"active_downloads"`
	CompletedDownloads []FileProgress     `json:"completed_downloads"`
	TotalBytes         int64              `json:"total_bytes"`
	DownloadedBytes    int64              `json:"downloaded_bytes"`
	PercentComplete    int                `json:"percent_complete"`
	ErrorMessage       string             `json:"error_message,omitempty"`
	StartedAt          time.Time          `json:"started_at"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty"`
}
