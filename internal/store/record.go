package store

import "time"

// WindowRecord is the durable row backing one tracked window. Handle is the
// toolkit's window id and only meaningful while that window exists; Identity
// outlives it. Rows are never deleted; closed windows leave orphaned rows.
type WindowRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Handle    uint32    `gorm:"not null;uniqueIndex" json:"handle"`
	Identity  string    `gorm:"not null;uniqueIndex;size:36" json:"identity"`
	Workspace *string   `json:"workspace,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
