package model

import "time"

// MessageSeverity operator message severity
type MessageSeverity string

const (
	SeverityInfo    MessageSeverity = "INFO"
	SeverityWarning MessageSeverity = "WARNING"
	SeverityAlert   MessageSeverity = "ALERT"
)

// Message operator-facing message (e.g. JVM crash detected in a session).
// Messages are housekeeping data aged out by the data-retention job.
type Message struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID string          `gorm:"column:project_id;type:varchar(255);index:idx_message_project" json:"project_id"`
	SessionID string          `gorm:"column:session_id;type:varchar(255)" json:"session_id"`
	Severity  MessageSeverity `gorm:"column:severity;type:varchar(20);not null" json:"severity"`
	Content   string          `gorm:"column:content;type:text;not null" json:"content"`
	CreatedAt time.Time       `gorm:"column:created_at;type:datetime(3);not null;index:idx_message_created" json:"created_at"`
}

// TableName specifies the table name for Message
func (Message) TableName() string {
	return "messages"
}
