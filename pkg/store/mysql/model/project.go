package model

import "time"

// Project a profiled application inside a workspace. OriginProjectID is the
// identifier carried by workspace events; ID is server-local.
type Project struct {
	ID              string    `gorm:"column:id;type:varchar(255);primaryKey" json:"id"`
	WorkspaceID     string    `gorm:"column:workspace_id;type:varchar(255);not null;index:idx_project_workspace" json:"workspace_id"`
	OriginProjectID string    `gorm:"column:origin_project_id;type:varchar(255);not null;uniqueIndex:idx_project_origin" json:"origin_project_id"`
	Name            string    `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Label           string    `gorm:"column:label;type:varchar(255)" json:"label"`
	RelativePath    string    `gorm:"column:relative_path;type:varchar(1024)" json:"relative_path"`
	CreatedAt       time.Time `gorm:"column:created_at;type:datetime(3);not null" json:"created_at"`
}

// TableName specifies the table name for Project
func (Project) TableName() string {
	return "projects"
}
