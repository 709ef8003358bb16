package models

import "time"

// EventType names an audit event. The set is open; new types may be added.
type EventType string

const (
	EventPublished           EventType = "published"
	EventRejectedNoAffiliate EventType = "rejected_no_affiliate"
)

// AuditEvent is an append-only record of a content transition.
type AuditEvent struct {
	ID   string    `gorm:"primaryKey;size:36" json:"id"`
	TS   time.Time `gorm:"column:ts;not null;index" json:"ts"`
	Type EventType `gorm:"size:50;not null;index" json:"type"`
	Meta string    `gorm:"size:255;index" json:"meta"` // content item id
}

// Strategy carries the periodically adjusted score of a generation strategy.
type Strategy struct {
	ID      string    `gorm:"primaryKey;size:36" json:"id"`
	Name    string    `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Score   float64   `gorm:"not null;default:1" json:"score"`
	LastRun time.Time `json:"last_run"`
}
