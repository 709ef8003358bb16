package models

import (
	"time"
)

// ErrorLog stores failures that happened outside a caller's request, e.g. in a scheduler cycle.
type ErrorLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Level     string    `gorm:"size:20;not null;index" json:"level"`   // ERROR, WARN, INFO
	Source    string    `gorm:"size:100;not null;index" json:"source"` // pipeline, scheduler, maintenance
	Topic     string    `gorm:"size:500" json:"topic"`
	ContentID *string   `gorm:"size:36;index" json:"content_id"`
	Title     string    `gorm:"size:500;not null" json:"title"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Context   string    `gorm:"type:text" json:"context"` // JSON encoded
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// MetricsSample is a single recorded metric value.
type MetricsSample struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MetricName string    `gorm:"size:100;not null;index" json:"metric_name"`
	MetricType string    `gorm:"size:50;not null" json:"metric_type"` // gauge, counter
	Value      float64   `gorm:"not null" json:"value"`
	Tags       string    `gorm:"type:text" json:"tags"`
	Timestamp  time.Time `gorm:"not null;index" json:"timestamp"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
