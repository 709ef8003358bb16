package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/affpress/internal/models"
	"github.com/ifuryst/affpress/internal/service/generator"
	"github.com/ifuryst/affpress/internal/service/publisher"
	"github.com/ifuryst/affpress/pkg/util"
)

const DefaultTopic = "Top converting products and deals this week"

const (
	ReasonPublished         = "published"
	ReasonNoAffiliateLinks  = "no_affiliate_links"
	ReasonGenerationFailed  = "generation_failed"
	ReasonStorageError      = "storage_error"
	ReasonInvalidTransition = "invalid_transition"
)

// PipelineResult is the outcome of one pipeline invocation.
type PipelineResult struct {
	ContentID  string   `json:"id,omitempty"`
	Topic      string   `json:"topic"`
	Published  bool     `json:"published"`
	Reason     string   `json:"reason"`
	Platforms  []string `json:"platforms,omitempty"`
	EstRevenue float64  `json:"est_revenue,omitempty"`
	Fallback   bool     `json:"fallback,omitempty"`
}

type Qualifier interface {
	Qualifies(body string) bool
}

type Distributor interface {
	PublishToAll(ctx context.Context, content publisher.PublishContent) []*publisher.PublishResult
}

type MetricsRecorder interface {
	RecordMetric(name, metricType string, value float64, tags map[string]interface{}) error
}

// PipelineDeps wires the collaborators of PublishPipeline. Distributor,
// Archive and Metrics are optional.
type PipelineDeps struct {
	Store       ContentStore
	Generator   generator.Generator
	Policy      Qualifier
	Distributor Distributor
	Archive     *ContentArchive
	Metrics     MetricsRecorder
	Logger      *zap.Logger
	Now         func() time.Time
}

// PublishPipeline runs generate, draft, policy check, transition and audit in that order.
type PublishPipeline struct {
	store       ContentStore
	generator   generator.Generator
	policy      Qualifier
	distributor Distributor
	archive     *ContentArchive
	metrics     MetricsRecorder
	logger      *zap.Logger
	now         func() time.Time
}

func NewPublishPipeline(deps PipelineDeps) *PublishPipeline {
	p := &PublishPipeline{
		store:       deps.Store,
		generator:   deps.Generator,
		policy:      deps.Policy,
		distributor: deps.Distributor,
		archive:     deps.Archive,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         deps.Now,
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// BuildPrompt asks for an article about topic that carries affiliate links and calls to action.
func BuildPrompt(topic string) string {
	return fmt.Sprintf("Write a conversion-optimized commercial article about: %s. "+
		"Include at least 2 links to affiliate domains and clear calls to action. "+
		"Structure it with subheadings and bullet points.", topic)
}

// Run executes one invocation for topic. Every call creates a new content
// item; nothing is deduplicated. The returned result is never nil. On
// failure it carries no content id and its Reason tells which step failed.
func (p *PublishPipeline) Run(ctx context.Context, topic string) (*PipelineResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = DefaultTopic
	}
	result := &PipelineResult{Topic: topic}
	start := time.Now()

	gen, ok := p.generator.Generate(ctx, BuildPrompt(topic))
	if !ok || strings.TrimSpace(gen.Text) == "" {
		result.Reason = ReasonGenerationFailed
		p.logger.Warn("Generation returned no content, skipping", zap.String("topic", topic))
		p.recordOutcome(result)
		return result, ErrGenerationUnavailable
	}
	result.Fallback = gen.Fallback

	title := util.BuildTitle(topic, p.now())
	id, err := p.store.CreateDraft(ctx, title, gen.Text, WithTopic(topic), WithFallback(gen.Fallback))
	if err != nil {
		return p.fail(result, fmt.Errorf("create draft: %w", err))
	}
	result.ContentID = id

	if err := p.archive.Save(id, title, gen.Text); err != nil {
		p.logger.Warn("Failed to archive content", zap.String("content_id", id), zap.Error(err))
	}

	if p.policy.Qualifies(gen.Text) {
		item := &models.ContentItem{ID: id, Topic: topic, Title: title, Body: gen.Text, Fallback: gen.Fallback}
		if err := p.publish(ctx, item, result); err != nil {
			return p.fail(result, err)
		}
		if gen.Fallback {
			p.logger.Warn("Published fallback template content", zap.String("content_id", id), zap.String("topic", topic))
		}
	} else {
		if err := p.reject(ctx, id, result); err != nil {
			return p.fail(result, err)
		}
	}

	p.logger.Info("Pipeline run completed",
		zap.String("topic", topic),
		zap.String("content_id", id),
		zap.Bool("published", result.Published),
		zap.String("reason", result.Reason),
		zap.Duration("duration", time.Since(start)))
	p.recordOutcome(result)

	return result, nil
}

func (p *PublishPipeline) publish(ctx context.Context, item *models.ContentItem, result *PipelineResult) error {
	dist := publisher.Distribution{Platforms: []string{}}
	if p.distributor != nil {
		dist = publisher.Summarize(p.distributor.PublishToAll(ctx, publisher.FromContentItem(item)))
	}

	if err := p.store.MarkPublished(ctx, item.ID, p.now(), WithPlatforms(dist.Platforms), WithEstRevenue(dist.EstRevenue)); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	if _, err := p.store.AppendEvent(ctx, models.EventPublished, item.ID); err != nil {
		return fmt.Errorf("append published event: %w", err)
	}

	result.Published = true
	result.Reason = ReasonPublished
	result.Platforms = dist.Platforms
	result.EstRevenue = dist.EstRevenue
	return nil
}

func (p *PublishPipeline) reject(ctx context.Context, id string, result *PipelineResult) error {
	if err := p.store.MarkRejected(ctx, id); err != nil {
		return fmt.Errorf("mark rejected: %w", err)
	}
	if _, err := p.store.AppendEvent(ctx, models.EventRejectedNoAffiliate, id); err != nil {
		return fmt.Errorf("append rejected event: %w", err)
	}

	result.Published = false
	result.Reason = ReasonNoAffiliateLinks
	return nil
}

func (p *PublishPipeline) fail(result *PipelineResult, err error) (*PipelineResult, error) {
	result.Published = false
	result.Reason = ReasonStorageError
	if errors.Is(err, ErrInvalidTransition) {
		result.Reason = ReasonInvalidTransition
	}

	p.logger.Error("Pipeline run failed",
		zap.String("topic", result.Topic),
		zap.String("content_id", result.ContentID),
		zap.String("reason", result.Reason),
		zap.Error(err))
	p.recordOutcome(result)

	result.ContentID = ""
	return result, err
}

func (p *PublishPipeline) recordOutcome(result *PipelineResult) {
	if p.metrics == nil {
		return
	}
	tags := map[string]interface{}{
		"topic":    result.Topic,
		"reason":   result.Reason,
		"fallback": result.Fallback,
	}
	if err := p.metrics.RecordMetric("pipeline_"+result.Reason, "counter", 1, tags); err != nil {
		p.logger.Warn("Failed to record pipeline metric", zap.Error(err))
	}
}
