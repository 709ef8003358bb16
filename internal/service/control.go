package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/affpress/internal/config"
	"github.com/ifuryst/affpress/internal/models"
	"github.com/ifuryst/affpress/internal/service/generator"
	"github.com/ifuryst/affpress/internal/service/publisher"
)

// Status is the operator view of the system.
type Status struct {
	Drafts           int64             `json:"drafts"`
	Published        int64             `json:"published"`
	Rejected         int64             `json:"rejected"`
	TotalRevenue     float64           `json:"total_revenue"`
	SchedulerRunning bool              `json:"scheduler_running"`
	DemoMode         bool              `json:"demo_mode"`
	Platforms        []string          `json:"platforms"`
	Strategies       []models.Strategy `json:"strategies"`
	RecentErrors     []models.ErrorLog `json:"recent_errors"`
}

// ControlService is the trigger surface shared by the HTTP server and the CLI.
type ControlService struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      ContentStore
	policy     *PublishPolicy
	publishers *publisher.Manager
	pipeline   *PublishPipeline
	scheduler  *Scheduler
	strategies *StrategyService
	monitoring *MonitoringService

	mu      sync.Mutex
	baseCtx context.Context
}

func NewControlService(cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*ControlService, error) {
	config.ApplyDefaults(cfg)

	interval, err := cfg.Scheduler.IntervalDuration()
	if err != nil {
		return nil, err
	}

	store := NewGormContentStore(db)
	monitoring := NewMonitoringService(db, logger)
	policy := NewPublishPolicy(&cfg.Policy)
	publishers := publisher.NewManagerFromConfig(&cfg.Publisher, logger)
	strategies := NewStrategyService(db, logger, nil)

	pipeline := NewPublishPipeline(PipelineDeps{
		Store:       store,
		Generator:   generator.New(&cfg.Generator, logger),
		Policy:      policy,
		Distributor: publishers,
		Archive:     NewContentArchive(cfg.Archive.Dir),
		Metrics:     monitoring,
		Logger:      logger,
	})

	retentionDays := cfg.Monitoring.RetentionDays
	scheduler := NewScheduler(pipeline, interval, cfg.Scheduler.Topics, logger,
		WithErrorRecorder(monitoring),
		WithMaintenance(
			MaintenanceTask{Name: "optimize_strategies", Run: strategies.Optimize},
			MaintenanceTask{Name: "cleanup_monitoring", Run: func(ctx context.Context) error {
				return monitoring.CleanupOldData(ctx, retentionDays)
			}},
		))

	if policy.DemoMode() {
		logger.Warn("Publish policy is in demo mode, every non-empty body will be published")
	}

	return &ControlService{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		policy:     policy,
		publishers: publishers,
		pipeline:   pipeline,
		scheduler:  scheduler,
		strategies: strategies,
		monitoring: monitoring,
		baseCtx:    context.Background(),
	}, nil
}

// Run binds ctx as the lifetime of scheduler loops, seeds the default
// strategy and starts the scheduler when auto start is enabled.
func (c *ControlService) Run(ctx context.Context) error {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()

	if err := c.strategies.EnsureDefault(ctx); err != nil {
		return fmt.Errorf("failed to seed strategies: %w", err)
	}

	if !c.cfg.Scheduler.AutoStartEnabled() {
		c.logger.Info("Scheduler auto start is disabled")
		return nil
	}
	return c.StartScheduler()
}

// TriggerOnce runs the pipeline for topic on the caller's context.
func (c *ControlService) TriggerOnce(ctx context.Context, topic string) (*PipelineResult, error) {
	result, err := c.pipeline.Run(ctx, topic)
	if err != nil && !errors.Is(err, ErrGenerationUnavailable) {
		_ = c.monitoring.RecordError("error", "trigger", "On-demand pipeline run failed", err.Error(),
			WithErrorTopic(result.Topic))
	}
	return result, err
}

func (c *ControlService) StartScheduler() error {
	c.mu.Lock()
	ctx := c.baseCtx
	c.mu.Unlock()

	return c.scheduler.Start(ctx)
}

func (c *ControlService) StopScheduler() {
	c.scheduler.Stop()
}

func (c *ControlService) Status(ctx context.Context) (*Status, error) {
	drafts, err := c.store.CountByStatus(ctx, models.StatusDraft)
	if err != nil {
		return nil, err
	}
	published, err := c.store.CountByStatus(ctx, models.StatusPublished)
	if err != nil {
		return nil, err
	}
	rejected, err := c.store.CountByStatus(ctx, models.StatusRejected)
	if err != nil {
		return nil, err
	}
	revenue, err := c.store.TotalRevenue(ctx)
	if err != nil {
		return nil, err
	}
	strategies, err := c.strategies.Recent(ctx, 5)
	if err != nil {
		return nil, err
	}
	recentErrors, err := c.monitoring.GetRecentErrors(5)
	if err != nil {
		return nil, &StorageError{Op: "list errors", Err: err}
	}

	return &Status{
		Drafts:           drafts,
		Published:        published,
		Rejected:         rejected,
		TotalRevenue:     revenue,
		SchedulerRunning: c.scheduler.Running(),
		DemoMode:         c.policy.DemoMode(),
		Platforms:        c.publishers.Platforms(),
		Strategies:       strategies,
		RecentErrors:     recentErrors,
	}, nil
}

func (c *ControlService) ListContent(ctx context.Context, opts ListOptions) ([]models.ContentItem, error) {
	return c.store.List(ctx, opts)
}

func (c *ControlService) GetContent(ctx context.Context, id string) (*models.ContentItem, error) {
	return c.store.Get(ctx, id)
}

func (c *ControlService) ExportEarnings(ctx context.Context, w io.Writer) error {
	return WriteEarnings(ctx, c.store, w)
}

// Shutdown stops the scheduler and waits for its loop to exit or ctx to end.
func (c *ControlService) Shutdown(ctx context.Context) error {
	c.scheduler.Stop()

	done := make(chan struct{})
	go func() {
		c.scheduler.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Scheduler shutdown completed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
