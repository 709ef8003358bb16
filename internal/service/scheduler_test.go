package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ifuryst/affpress/internal/models"
	"github.com/ifuryst/affpress/internal/service/generator"
)

type countingRunner struct {
	calls atomic.Int32
	fn    func(call int32) (*PipelineResult, error)
}

func (r *countingRunner) Run(_ context.Context, topic string) (*PipelineResult, error) {
	n := r.calls.Add(1)
	if r.fn != nil {
		return r.fn(n)
	}
	return &PipelineResult{Topic: topic, Published: true, Reason: ReasonPublished}, nil
}

type blockingGenerator struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	calls   atomic.Int32
}

func (g *blockingGenerator) Generate(context.Context, string) (generator.Generation, bool) {
	g.calls.Add(1)
	g.once.Do(func() { close(g.started) })
	<-g.release
	return generator.Generation{Text: earbudsArticle, Provider: "stub"}, true
}

type recordedError struct {
	title string
	topic string
}

type memoryRecorder struct {
	mu     sync.Mutex
	errors []recordedError
}

func (m *memoryRecorder) RecordError(_, _, title, _ string, options ...ErrorLogOption) error {
	entry := &models.ErrorLog{}
	for _, option := range options {
		option(entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, recordedError{title: title, topic: entry.Topic})
	return nil
}

func (m *memoryRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func TestSchedulerStartTwiceReportsAlreadyRunning(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, 50*time.Millisecond, []string{"earbuds"}, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	err := s.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.True(t, s.Running())

	time.Sleep(275 * time.Millisecond)
	s.Stop()
	s.Wait()

	calls := runner.calls.Load()
	assert.GreaterOrEqual(t, calls, int32(1))
	assert.LessOrEqual(t, calls, int32(5))
}

func TestSchedulerConcurrentStartSpawnsOneLoop(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, 40*time.Millisecond, []string{"earbuds"}, zap.NewNop())

	var started atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Start(context.Background()) == nil {
				started.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), started.Load())

	time.Sleep(220 * time.Millisecond)
	s.Stop()
	s.Wait()
	assert.LessOrEqual(t, runner.calls.Load(), int32(5))
}

func TestSchedulerStopLetsInFlightRunFinish(t *testing.T) {
	store := openTestStore(t)
	gen := &blockingGenerator{started: make(chan struct{}), release: make(chan struct{})}
	pipeline := NewPublishPipeline(PipelineDeps{
		Store:     store,
		Generator: gen,
		Policy:    strictPolicy(),
	})
	s := NewScheduler(pipeline, 10*time.Millisecond, []string{"earbuds"}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))

	select {
	case <-gen.started:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline run did not start")
	}

	s.Stop()
	assert.False(t, s.Running())
	close(gen.release)
	s.Wait()

	published, err := store.CountByStatus(ctx, models.StatusPublished)
	require.NoError(t, err)
	assert.EqualValues(t, 1, published)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestSchedulerSurvivesErrorsAndPanics(t *testing.T) {
	recorder := &memoryRecorder{}
	runner := &countingRunner{fn: func(call int32) (*PipelineResult, error) {
		switch call {
		case 1:
			panic("boom")
		case 2:
			return &PipelineResult{Reason: ReasonStorageError}, &StorageError{Op: "create draft", Err: errors.New("locked")}
		case 3:
			return &PipelineResult{Reason: ReasonGenerationFailed}, ErrGenerationUnavailable
		}
		return &PipelineResult{Published: true, Reason: ReasonPublished}, nil
	}}
	s := NewScheduler(runner, 10*time.Millisecond, []string{"earbuds"}, zap.NewNop(), WithErrorRecorder(recorder))

	require.NoError(t, s.Start(context.Background()))
	defer func() {
		s.Stop()
		s.Wait()
	}()

	require.Eventually(t, func() bool { return runner.calls.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.Running())
	assert.Equal(t, 2, recorder.count())

	recorder.mu.Lock()
	assert.Equal(t, "Pipeline panicked", recorder.errors[0].title)
	assert.Equal(t, "earbuds", recorder.errors[0].topic)
	recorder.mu.Unlock()
}

func TestSchedulerRunsMaintenanceAfterTopics(t *testing.T) {
	var mu sync.Mutex
	var order []string

	runner := &countingRunner{fn: func(int32) (*PipelineResult, error) {
		mu.Lock()
		order = append(order, "topic")
		mu.Unlock()
		return &PipelineResult{}, nil
	}}
	task := MaintenanceTask{Name: "strategy", Run: func(context.Context) error {
		mu.Lock()
		order = append(order, "task")
		mu.Unlock()
		return errors.New("ignored")
	}}
	s := NewScheduler(runner, 10*time.Millisecond, []string{"a", "b"}, zap.NewNop(), WithMaintenance(task))

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) >= 3
	}, 2*time.Second, 5*time.Millisecond)
	s.Stop()
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"topic", "topic", "task"}, order[:3])
}

func TestSchedulerStopWhenStoppedIsNoop(t *testing.T) {
	s := NewScheduler(&countingRunner{}, time.Minute, nil, zap.NewNop())
	s.Stop()
	s.Wait()
	assert.False(t, s.Running())
}

func TestSchedulerRestartAfterStop(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, 10*time.Millisecond, []string{"earbuds"}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	s.Stop()
	require.NoError(t, s.Start(ctx))
	assert.True(t, s.Running())

	require.Eventually(t, func() bool { return runner.calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
	s.Wait()
	assert.False(t, s.Running())
}

func TestSchedulerExitsOnContextCancel(t *testing.T) {
	s := NewScheduler(&countingRunner{}, time.Minute, []string{"earbuds"}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	cancel()
	s.Wait()
	assert.False(t, s.Running())

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	s.Wait()
}

func TestSchedulerRejectsInvalidInterval(t *testing.T) {
	s := NewScheduler(&countingRunner{}, 0, nil, zap.NewNop())
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.Running())
}
