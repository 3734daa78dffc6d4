package models

import (
	"time"

	"gorm.io/gorm"
)

// ActivityRecord is one dispatched label, persisted by the recorder sink.
type ActivityRecord struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CycleID   string         `gorm:"not null;index" json:"cycle_id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Label     string         `gorm:"not null;index" json:"label"`
	Duration  int64          `gorm:"not null;default:0" json:"duration"` // Duration in seconds
	Frames    int            `gorm:"not null;default:1" json:"frames"`
	Source    string         `gorm:"not null" json:"source"` // "x11" or "folder"
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type LabelSummary struct {
	Label        string  `json:"label"`
	TotalSeconds int64   `json:"total_seconds"`
	TotalMinutes float64 `json:"total_minutes"`
	TotalHours   float64 `json:"total_hours"`
	CycleCount   int     `json:"cycle_count"`
	Percentage   float64 `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period       ReportPeriod   `json:"period"`
	Labels       []LabelSummary `json:"labels"`
	TotalSeconds int64          `json:"total_seconds"`
	TotalMinutes float64        `json:"total_minutes"`
	TotalHours   float64        `json:"total_hours"`
	FailedCycles int64          `json:"failed_cycles"`
	GeneratedAt  time.Time      `json:"generated_at"`
}
