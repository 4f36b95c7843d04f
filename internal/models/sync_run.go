package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SyncRun records the outcome of one drain pass of an upload queue
type SyncRun struct {
	ID         string         `gorm:"primaryKey" json:"id"`
	Queue      string         `gorm:"not null;index" json:"queue"`
	Trigger    string         `gorm:"not null" json:"trigger"` // reachability, flush, submit
	Status     string         `gorm:"not null;default:running" json:"status"` // running, completed, partial, error
	Attempted  int            `gorm:"not null;default:0" json:"attempted"`
	Uploaded   int            `gorm:"not null;default:0" json:"uploaded"`
	Rejected   int            `gorm:"not null;default:0" json:"rejected"`
	Deferred   int            `gorm:"not null;default:0" json:"deferred"`
	Messages   string         `gorm:"type:text" json:"messages"` // JSON array of strings
	Results    datatypes.JSON `json:"results"`                   // per-job outcomes
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (r *SyncRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (SyncRun) TableName() string {
	return "sync_runs"
}
