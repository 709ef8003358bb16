package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ContentStatus is the publication state of a content item.
type ContentStatus string

const (
	StatusDraft     ContentStatus = "draft"
	StatusPublished ContentStatus = "published"
	StatusRejected  ContentStatus = "rejected"
)

// Terminal reports whether no transition may leave the status.
func (s ContentStatus) Terminal() bool {
	return s == StatusPublished || s == StatusRejected
}

// MaxTitleLength is the number of runes kept from a title on store.
const MaxTitleLength = 200

// StringList is a list of strings stored as a comma separated text column.
type StringList []string

// Scan implements the sql.Scanner interface
func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = StringList{}
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = splitList(v)
		return nil
	case []byte:
		*s = splitList(string(v))
		return nil
	default:
		return errors.New(fmt.Sprintf("cannot scan %T into StringList", value))
	}
}

// Value implements the driver.Valuer interface
func (s StringList) Value() (driver.Value, error) {
	return strings.Join(s, ","), nil
}

func splitList(v string) StringList {
	v = strings.TrimSpace(v)
	if v == "" {
		return StringList{}
	}

	parts := strings.Split(v, ",")
	result := make(StringList, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

// ContentItem is one generated unit of text considered for publication.
type ContentItem struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	Topic       string        `gorm:"size:500" json:"topic"`
	Title       string        `gorm:"not null;size:1000" json:"title"`
	Body        string        `gorm:"type:text;not null" json:"body"`
	Status      ContentStatus `gorm:"size:20;not null;index;default:'draft'" json:"status"`
	Fallback    bool          `gorm:"default:false" json:"fallback"`
	Platforms   StringList    `gorm:"type:text" json:"platforms"`
	EstRevenue  float64       `gorm:"default:0" json:"est_revenue"`
	CreatedAt   time.Time     `gorm:"not null;index" json:"created_at"`
	PublishedAt *time.Time    `json:"published_at"`
}
