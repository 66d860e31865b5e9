package model

import "time"

// ProjectInstance one JVM process lifetime within a project. An instance is
// finished either by an explicit INSTANCE_FINISHED event or automatically
// when its last active session finishes.
type ProjectInstance struct {
	ID         string     `gorm:"column:id;type:varchar(255);primaryKey" json:"id"`
	ProjectID  string     `gorm:"column:project_id;type:varchar(255);not null;index:idx_instance_project" json:"project_id"`
	CreatedAt  time.Time  `gorm:"column:created_at;type:datetime(3);not null" json:"created_at"`
	FinishedAt *time.Time `gorm:"column:finished_at;type:datetime(3)" json:"finished_at,omitempty"`
}

// TableName specifies the table name for ProjectInstance
func (ProjectInstance) TableName() string {
	return "project_instances"
}
