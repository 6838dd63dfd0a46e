package model

import (
	"time"
)

const (
	ExportStatusPending    = "pending"
	ExportStatusProcessing = "processing"
	ExportStatusCompleted  = "completed"
	ExportStatusFailed     = "failed"
)

type ExportJob struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	Status       string     `gorm:"size:20;default:pending;index" json:"status"`
	FileName     string     `gorm:"size:255" json:"file_name"`
	FilePath     string     `gorm:"size:500" json:"-"`
	ObjectURL    string     `gorm:"size:500" json:"object_url"`
	RowCount     int        `gorm:"default:0" json:"row_count"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (ExportJob) TableName() string {
	return "export_jobs"
}
