package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TopicRunner runs one pipeline invocation for a topic.
type TopicRunner interface {
	Run(ctx context.Context, topic string) (*PipelineResult, error)
}

type ErrorRecorder interface {
	RecordError(level, source, title, message string, options ...ErrorLogOption) error
}

// MaintenanceTask runs once per cycle after every topic has been processed.
type MaintenanceTask struct {
	Name string
	Run  func(ctx context.Context) error
}

type SchedulerOption func(*Scheduler)

func WithMaintenance(tasks ...MaintenanceTask) SchedulerOption {
	return func(s *Scheduler) {
		s.tasks = append(s.tasks, tasks...)
	}
}

func WithErrorRecorder(recorder ErrorRecorder) SchedulerOption {
	return func(s *Scheduler) {
		s.recorder = recorder
	}
}

// Scheduler drives the pipeline on a fixed interval. At most one loop runs
// cycles at any time.
type Scheduler struct {
	runner   TopicRunner
	interval time.Duration
	topics   []string
	tasks    []MaintenanceTask
	recorder ErrorRecorder
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

func NewScheduler(runner TopicRunner, interval time.Duration, topics []string, logger *zap.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		interval: interval,
		topics:   append([]string(nil), topics...),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the periodic loop. It returns ErrAlreadyRunning when a loop
// is already active.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("invalid scheduler interval %s", s.interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	stopCh := make(chan struct{})
	done := make(chan struct{})
	prev := s.done
	s.running = true
	s.stopCh = stopCh
	s.done = done

	s.logger.Info("Starting scheduler",
		zap.Duration("interval", s.interval),
		zap.Strings("topics", s.topics))

	go s.loop(ctx, stopCh, prev, done)
	return nil
}

// Stop signals the active loop to exit at its next wait boundary. A cycle in
// progress runs to completion. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	s.logger.Info("Scheduler stop requested")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait blocks until the most recently started loop has exited.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

func (s *Scheduler) loop(ctx context.Context, stopCh chan struct{}, prev <-chan struct{}, done chan struct{}) {
	defer close(done)
	defer s.release(stopCh)

	// a loop stopped just before this one may still be finishing its cycle
	if prev != nil {
		select {
		case <-prev:
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			s.logger.Info("Scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Scheduler context cancelled")
			return
		case <-ticker.C:
		}

		select {
		case <-stopCh:
			s.logger.Info("Scheduler stopped")
			return
		default:
		}

		s.runCycle(ctx)
	}
}

// release marks the scheduler stopped when the loop exits on its own, for
// example after the context is cancelled.
func (s *Scheduler) release(stopCh chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running && s.stopCh == stopCh {
		close(s.stopCh)
		s.running = false
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	start := time.Now()
	s.logger.Info("Running scheduled cycle", zap.Int("topics", len(s.topics)))

	published := 0
	for _, topic := range s.topics {
		if s.runTopic(ctx, topic) {
			published++
		}
	}

	for _, task := range s.tasks {
		s.runTask(ctx, task)
	}

	s.logger.Info("Scheduled cycle completed",
		zap.Int("published", published),
		zap.Duration("duration", time.Since(start)))
}

func (s *Scheduler) runTopic(ctx context.Context, topic string) (published bool) {
	defer func() {
		if r := recover(); r != nil {
			s.recordFailure(topic, "Pipeline panicked", fmt.Sprint(r))
			published = false
		}
	}()

	result, err := s.runner.Run(ctx, topic)
	if err != nil {
		if errors.Is(err, ErrGenerationUnavailable) {
			s.logger.Warn("No content generated this cycle", zap.String("topic", topic))
			return false
		}
		s.recordFailure(topic, "Pipeline run failed", err.Error())
		return false
	}
	return result != nil && result.Published
}

func (s *Scheduler) runTask(ctx context.Context, task MaintenanceTask) {
	defer func() {
		if r := recover(); r != nil {
			s.recordFailure("", "Maintenance task panicked: "+task.Name, fmt.Sprint(r))
		}
	}()

	if err := task.Run(ctx); err != nil {
		s.recordFailure("", "Maintenance task failed: "+task.Name, err.Error())
	}
}

func (s *Scheduler) recordFailure(topic, title, message string) {
	s.logger.Error(title, zap.String("topic", topic), zap.String("error", message))
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordError("error", "scheduler", title, message, WithErrorTopic(topic)); err != nil {
		s.logger.Warn("Failed to record scheduler error", zap.Error(err))
	}
}
