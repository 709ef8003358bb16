package publisher

import (
	"context"
	"time"

	"github.com/ifuryst/affpress/internal/models"
)

// PublishContent represents the content to be published
type PublishContent struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// PublishResult represents the result of a publish operation
type PublishResult struct {
	Platform    string    `json:"platform"`
	Success     bool      `json:"success"`
	PublishID   string    `json:"publish_id,omitempty"`
	EstRevenue  float64   `json:"est_revenue"`
	Error       error     `json:"-"`
	PublishedAt time.Time `json:"published_at"`
}

// Publisher distributes content to one platform. Implementations only record
// simulated results; nothing is sent to a real platform.
type Publisher interface {
	GetPlatformName() string
	Publish(ctx context.Context, content PublishContent) (*PublishResult, error)
}

// FromContentItem converts a stored item to PublishContent
func FromContentItem(item *models.ContentItem) PublishContent {
	metadata := map[string]string{
		"topic": item.Topic,
	}
	if item.Fallback {
		metadata["fallback"] = "true"
	}

	return PublishContent{
		ID:       item.ID,
		Title:    item.Title,
		Content:  item.Body,
		Metadata: metadata,
	}
}
