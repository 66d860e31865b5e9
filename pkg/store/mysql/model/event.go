package model

import "time"

// WorkspaceEvent append-only event log row. The auto-increment ID is the
// consumer-visible offset: strictly increasing within a workspace. DedupKey
// makes at-least-once replication safe (duplicate appends are no-ops).
type WorkspaceEvent struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WorkspaceID     string    `gorm:"column:workspace_id;type:varchar(255);not null;index:idx_event_workspace,priority:1" json:"workspace_id"`
	ProjectID       string    `gorm:"column:project_id;type:varchar(255);index:idx_event_project" json:"project_id"`
	SessionID       string    `gorm:"column:session_id;type:varchar(255)" json:"session_id"`
	EventType       string    `gorm:"column:event_type;type:varchar(50);not null" json:"event_type"`
	DedupKey        string    `gorm:"column:dedup_key;type:varchar(255);uniqueIndex:idx_event_dedup" json:"dedup_key"`
	Payload         string    `gorm:"column:payload;type:json" json:"payload"`
	OriginCreatedAt time.Time `gorm:"column:origin_created_at;type:datetime(3);not null" json:"origin_created_at"`
	CreatedAt       time.Time `gorm:"column:created_at;type:datetime(3);not null;index:idx_event_created" json:"created_at"`
	CreatedBy       string    `gorm:"column:created_by;type:varchar(100)" json:"created_by"`
}

// TableName specifies the table name for WorkspaceEvent
func (WorkspaceEvent) TableName() string {
	return "workspace_events"
}

// ConsumerOffset last processed event ID per (workspace, consumer). Created
// lazily on first poll, updated once per successfully processed batch.
type ConsumerOffset struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	WorkspaceID     string     `gorm:"column:workspace_id;type:varchar(255);not null;uniqueIndex:idx_offset_consumer,priority:1" json:"workspace_id"`
	ConsumerName    string     `gorm:"column:consumer_name;type:varchar(100);not null;uniqueIndex:idx_offset_consumer,priority:2" json:"consumer_name"`
	LastOffset      int64      `gorm:"column:last_offset;type:bigint;not null;default:0" json:"last_offset"`
	CreatedAt       time.Time  `gorm:"column:created_at;type:datetime(3);not null" json:"created_at"`
	LastExecutionAt *time.Time `gorm:"column:last_execution_at;type:datetime(3)" json:"last_execution_at,omitempty"`
}

// TableName specifies the table name for ConsumerOffset
func (ConsumerOffset) TableName() string {
	return "consumer_offsets"
}
