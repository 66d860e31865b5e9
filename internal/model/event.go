package model

import (
	"encoding/json"
	"time"
)

// WorkspaceEventType event type
type WorkspaceEventType string

const (
	EventProjectCreated   WorkspaceEventType = "PROJECT_CREATED"
	EventInstanceCreated  WorkspaceEventType = "INSTANCE_CREATED"
	EventInstanceFinished WorkspaceEventType = "INSTANCE_FINISHED"
	EventSessionCreated   WorkspaceEventType = "SESSION_CREATED"
	EventSessionFinished  WorkspaceEventType = "SESSION_FINISHED"
	EventStreamingStopped WorkspaceEventType = "STREAMING_STOPPED"
	EventSessionDeleted   WorkspaceEventType = "SESSION_DELETED"
	EventProjectDeleted   WorkspaceEventType = "PROJECT_DELETED"
)

// WorkspaceEventCreator identifies which component appended an event
type WorkspaceEventCreator string

const (
	CreatorManual        WorkspaceEventCreator = "MANUAL"
	CreatorCLIReplicator WorkspaceEventCreator = "CLI_REPLICATOR"
	CreatorDetectorJob   WorkspaceEventCreator = "SESSION_FINISHED_DETECTOR_JOB"
	CreatorRetentionJob  WorkspaceEventCreator = "SESSION_RETENTION_JOB"
)

// CLIWorkspaceEvent is the wire shape of an event file the CLI agent drops
// into the shared inbox directory. The replicator stamps the server-side
// creation time and dedup key when it turns one into a log row.
type CLIWorkspaceEvent struct {
	EventID     string             `json:"event_id"`
	WorkspaceID string             `json:"workspace_id"`
	ProjectID   string             `json:"project_id,omitempty"`
	SessionID   string             `json:"session_id,omitempty"`
	EventType   WorkspaceEventType `json:"event_type"`
	Content     json.RawMessage    `json:"content,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// ProjectCreatedContent payload of a PROJECT_CREATED event
type ProjectCreatedContent struct {
	ProjectName         string            `json:"project_name"`
	ProjectLabel        string            `json:"project_label,omitempty"`
	RelativeProjectPath string            `json:"relative_project_path"`
	Attributes          map[string]string `json:"attributes,omitempty"`
}

// InstanceCreatedContent payload of an INSTANCE_CREATED event
type InstanceCreatedContent struct {
	InstanceID string `json:"instance_id"`
}

// InstanceFinishedContent payload of an INSTANCE_FINISHED event
type InstanceFinishedContent struct {
	InstanceID string `json:"instance_id"`
}

// SessionCreatedContent payload of a SESSION_CREATED event
type SessionCreatedContent struct {
	InstanceID          string `json:"instance_id"`
	Order               int    `json:"order"`
	RelativeSessionPath string `json:"relative_session_path"`
	ProfilerSettings    string `json:"profiler_settings,omitempty"`
	DetectionFile       string `json:"detection_file,omitempty"`
}

// SessionFinishedContent payload of a SESSION_FINISHED event
type SessionFinishedContent struct {
	FinishedAt time.Time `json:"finished_at"`
}
