package model

import "time"

// Workspace top-level grouping of projects, locally owned or mirrored from a
// remote peer. The ID is the origin identifier assigned by the producer.
type Workspace struct {
	ID        string    `gorm:"column:id;type:varchar(255);primaryKey" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Remote    bool      `gorm:"column:remote;not null;default:0" json:"remote"`
	CreatedAt time.Time `gorm:"column:created_at;type:datetime(3);not null" json:"created_at"`
}

// TableName specifies the table name for Workspace
func (Workspace) TableName() string {
	return "workspaces"
}
