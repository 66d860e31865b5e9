package model

import "time"

// RecordingSession database row for one recording run. Status is never
// stored; it is derived from FinishedAt and filesystem signals at read time.
type RecordingSession struct {
	ID                  string     `gorm:"column:id;type:varchar(255);primaryKey" json:"id"`
	ProjectID           string     `gorm:"column:project_id;type:varchar(255);not null;index:idx_session_project" json:"project_id"`
	InstanceID          string     `gorm:"column:instance_id;type:varchar(255);index:idx_session_instance" json:"instance_id"`
	OrderNum            int        `gorm:"column:order_num;type:int;default:0" json:"order_num"`
	RelativeSessionPath string     `gorm:"column:relative_session_path;type:varchar(1024);not null" json:"relative_session_path"`
	ProfilerSettings    string     `gorm:"column:profiler_settings;type:text" json:"profiler_settings"`
	DetectionFile       string     `gorm:"column:detection_file;type:varchar(255)" json:"detection_file"`
	OriginCreatedAt     time.Time  `gorm:"column:origin_created_at;type:datetime(3);not null" json:"origin_created_at"`
	CreatedAt           time.Time  `gorm:"column:created_at;type:datetime(3);not null" json:"created_at"`
	FinishedAt          *time.Time `gorm:"column:finished_at;type:datetime(3);index:idx_session_finished" json:"finished_at,omitempty"`
}

// TableName specifies the table name for RecordingSession
func (RecordingSession) TableName() string {
	return "recording_sessions"
}
