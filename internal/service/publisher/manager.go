package publisher

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ifuryst/affpress/internal/config"
)

var defaultPlatforms = []string{"demo-web", "demo-telegram"}

// Manager keeps the registered publishers in registration order
type Manager struct {
	mu         sync.RWMutex
	publishers map[string]Publisher
	order      []string
	logger     *zap.Logger
}

func NewPublishManager(logger *zap.Logger) *Manager {
	return &Manager{
		publishers: make(map[string]Publisher),
		logger:     logger,
	}
}

// NewManagerFromConfig registers a simulated publisher per enabled platform,
// or the demo platforms when none are configured.
func NewManagerFromConfig(cfg *config.PublisherConfig, logger *zap.Logger) *Manager {
	m := NewPublishManager(logger)

	if len(cfg.Platforms) == 0 {
		for _, name := range defaultPlatforms {
			_ = m.RegisterPublisher(NewSimulatedPublisher(name, 0.5, 5.0, nil))
		}
		return m
	}

	for _, p := range cfg.Platforms {
		if !p.Enabled {
			m.logger.Info("Platform disabled, skipping", zap.String("platform", p.Name))
			continue
		}
		if err := m.RegisterPublisher(NewSimulatedPublisher(p.Name, p.MinRevenue, p.MaxRevenue, nil)); err != nil {
			m.logger.Error("Failed to register publisher", zap.String("platform", p.Name), zap.Error(err))
		}
	}
	return m
}

func (m *Manager) RegisterPublisher(publisher Publisher) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	platformName := publisher.GetPlatformName()
	if _, exists := m.publishers[platformName]; exists {
		return fmt.Errorf("publisher for platform %s already registered", platformName)
	}

	m.publishers[platformName] = publisher
	m.order = append(m.order, platformName)
	m.logger.Info("Publisher registered", zap.String("platform", platformName))
	return nil
}

func (m *Manager) GetPublisher(platformName string) (Publisher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	publisher, exists := m.publishers[platformName]
	if !exists {
		return nil, fmt.Errorf("publisher for platform %s not found", platformName)
	}
	return publisher, nil
}

// Platforms returns the registered platform names.
func (m *Manager) Platforms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// PublishToAll publishes content to every registered platform. A failing
// platform is reported in its result and does not stop the others.
func (m *Manager) PublishToAll(ctx context.Context, content PublishContent) []*PublishResult {
	platforms := m.Platforms()
	results := make([]*PublishResult, 0, len(platforms))

	for _, platformName := range platforms {
		publisher, err := m.GetPublisher(platformName)
		if err != nil {
			results = append(results, &PublishResult{Platform: platformName, Error: err})
			continue
		}

		result, err := publisher.Publish(ctx, content)
		if err != nil {
			m.logger.Error("Failed to publish content",
				zap.String("platform", platformName),
				zap.String("content_id", content.ID),
				zap.Error(err))
			results = append(results, &PublishResult{Platform: platformName, Error: err})
			continue
		}

		m.logger.Debug("Publishing completed",
			zap.String("platform", platformName),
			zap.Bool("success", result.Success),
			zap.String("publish_id", result.PublishID))
		results = append(results, result)
	}

	return results
}

// Distribution summarizes the successful results of PublishToAll.
type Distribution struct {
	Platforms  []string
	EstRevenue float64
}

func Summarize(results []*PublishResult) Distribution {
	d := Distribution{Platforms: []string{}}
	for _, r := range results {
		if r == nil || !r.Success {
			continue
		}
		d.Platforms = append(d.Platforms, r.Platform)
		d.EstRevenue += r.EstRevenue
	}
	return d
}
