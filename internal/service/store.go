package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ifuryst/affpress/internal/models"
	"github.com/ifuryst/affpress/pkg/util"
)

// ContentStore is the durable record of content items and their audit events.
type ContentStore interface {
	CreateDraft(ctx context.Context, title, body string, opts ...DraftOption) (string, error)
	Get(ctx context.Context, id string) (*models.ContentItem, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time, opts ...PublishOption) error
	MarkRejected(ctx context.Context, id string) error
	AppendEvent(ctx context.Context, eventType models.EventType, meta string) (*models.AuditEvent, error)
	CountByStatus(ctx context.Context, status models.ContentStatus) (int64, error)
	List(ctx context.Context, opts ListOptions) ([]models.ContentItem, error)
	Events(ctx context.Context, contentID string) ([]models.AuditEvent, error)
	TotalRevenue(ctx context.Context) (float64, error)
}

// DraftOption sets optional fields of a new draft.
type DraftOption func(*models.ContentItem)

// WithTopic records the topic the draft was generated for.
func WithTopic(topic string) DraftOption {
	return func(c *models.ContentItem) {
		c.Topic = topic
	}
}

// WithFallback marks the draft body as produced by the fallback template.
func WithFallback(fallback bool) DraftOption {
	return func(c *models.ContentItem) {
		c.Fallback = fallback
	}
}

// PublishOption sets optional columns written with the published transition.
type PublishOption func(map[string]interface{})

// WithPlatforms records the platforms the item was distributed to.
func WithPlatforms(platforms []string) PublishOption {
	return func(updates map[string]interface{}) {
		updates["platforms"] = models.StringList(platforms)
	}
}

// WithEstRevenue records the estimated revenue of the publication.
func WithEstRevenue(amount float64) PublishOption {
	return func(updates map[string]interface{}) {
		updates["est_revenue"] = amount
	}
}

// ListOptions filters List.
type ListOptions struct {
	Statuses []models.ContentStatus
	Limit    int
}

// GormContentStore implements ContentStore on top of gorm.
type GormContentStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ContentStore = (*GormContentStore)(nil)

type StoreOption func(*GormContentStore)

// WithClock overrides the clock used for createdAt and event timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *GormContentStore) {
		s.now = now
	}
}

func NewGormContentStore(db *gorm.DB, opts ...StoreOption) *GormContentStore {
	s := &GormContentStore{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GormContentStore) CreateDraft(ctx context.Context, title, body string, opts ...DraftOption) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", ErrEmptyBody
	}

	item := &models.ContentItem{
		ID:        uuid.NewString(),
		Title:     util.Truncate(title, models.MaxTitleLength),
		Body:      body,
		Status:    models.StatusDraft,
		Platforms: models.StringList{},
		CreatedAt: s.now().UTC(),
	}
	for _, opt := range opts {
		opt(item)
	}

	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return "", &StorageError{Op: "create draft", Err: err}
	}
	return item.ID, nil
}

func (s *GormContentStore) Get(ctx context.Context, id string) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "get content", Err: err}
	}
	return &item, nil
}

func (s *GormContentStore) MarkPublished(ctx context.Context, id string, publishedAt time.Time, opts ...PublishOption) error {
	updates := map[string]interface{}{
		"status":       models.StatusPublished,
		"published_at": publishedAt.UTC(),
	}
	for _, opt := range opts {
		opt(updates)
	}
	return s.transition(ctx, id, models.StatusPublished, updates)
}

func (s *GormContentStore) MarkRejected(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusRejected, map[string]interface{}{
		"status": models.StatusRejected,
	})
}

// transition applies updates with a single guarded statement so that only drafts move.
func (s *GormContentStore) transition(ctx context.Context, id string, to models.ContentStatus, updates map[string]interface{}) error {
	result := s.db.WithContext(ctx).
		Model(&models.ContentItem{}).
		Where("id = ? AND status = ?", id, models.StatusDraft).
		Updates(updates)
	if result.Error != nil {
		return &StorageError{Op: "mark " + string(to), Err: result.Error}
	}
	if result.RowsAffected == 1 {
		return nil
	}

	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return &InvalidTransitionError{ID: id, From: item.Status, To: to}
}

func (s *GormContentStore) AppendEvent(ctx context.Context, eventType models.EventType, meta string) (*models.AuditEvent, error) {
	event := &models.AuditEvent{
		ID:   uuid.NewString(),
		TS:   s.now().UTC(),
		Type: eventType,
		Meta: meta,
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, &StorageError{Op: "append event", Err: err}
	}
	return event, nil
}

func (s *GormContentStore) CountByStatus(ctx context.Context, status models.ContentStatus) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ContentItem{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, &StorageError{Op: "count content", Err: err}
	}
	return count, nil
}

func (s *GormContentStore) List(ctx context.Context, opts ListOptions) ([]models.ContentItem, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC").Order("id")
	if len(opts.Statuses) > 0 {
		query = query.Where("status IN ?", opts.Statuses)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var items []models.ContentItem
	if err := query.Find(&items).Error; err != nil {
		return nil, &StorageError{Op: "list content", Err: err}
	}
	return items, nil
}

func (s *GormContentStore) Events(ctx context.Context, contentID string) ([]models.AuditEvent, error) {
	var events []models.AuditEvent
	if err := s.db.WithContext(ctx).Where("meta = ?", contentID).Order("ts").Find(&events).Error; err != nil {
		return nil, &StorageError{Op: "list events", Err: err}
	}
	return events, nil
}

func (s *GormContentStore) TotalRevenue(ctx context.Context) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).
		Model(&models.ContentItem{}).
		Where("status = ?", models.StatusPublished).
		Select("COALESCE(SUM(est_revenue), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, &StorageError{Op: "sum revenue", Err: err}
	}
	return total, nil
}
