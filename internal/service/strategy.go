package service

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/affpress/internal/models"
)

const (
	DefaultStrategyName = "default"
	minStrategyScore    = 0.1
)

// StrategyService adjusts strategy scores once per scheduler cycle. Nothing
// reads the scores back into generation yet.
type StrategyService struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewStrategyService(db *gorm.DB, logger *zap.Logger, rnd *rand.Rand) *StrategyService {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &StrategyService{
		db:     db,
		logger: logger,
		now:    time.Now,
		rnd:    rnd,
	}
}

// EnsureDefault seeds the default strategy when the table is empty.
func (s *StrategyService) EnsureDefault(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Strategy{}).Count(&count).Error; err != nil {
		return &StorageError{Op: "count strategies", Err: err}
	}
	if count > 0 {
		return nil
	}

	strategy := &models.Strategy{
		ID:      uuid.NewString(),
		Name:    DefaultStrategyName,
		Score:   1.0,
		LastRun: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(strategy).Error; err != nil {
		return &StorageError{Op: "seed strategy", Err: err}
	}
	s.logger.Info("Seeded default strategy", zap.String("id", strategy.ID))
	return nil
}

// Optimize multiplies every score by a random factor in [0.95, 1.10),
// never letting it drop below 0.1.
func (s *StrategyService) Optimize(ctx context.Context) error {
	var strategies []models.Strategy
	if err := s.db.WithContext(ctx).Find(&strategies).Error; err != nil {
		return &StorageError{Op: "load strategies", Err: err}
	}

	now := s.now().UTC()
	var errs []error
	for _, st := range strategies {
		score := math.Max(minStrategyScore, st.Score*(1+s.jitter()))
		err := s.db.WithContext(ctx).Model(&models.Strategy{}).
			Where("id = ?", st.ID).
			Updates(map[string]interface{}{"score": score, "last_run": now}).Error
		if err != nil {
			errs = append(errs, &StorageError{Op: "update strategy", Err: err})
			continue
		}
		s.logger.Debug("Strategy score adjusted",
			zap.String("name", st.Name),
			zap.Float64("from", st.Score),
			zap.Float64("to", score))
	}
	return errors.Join(errs...)
}

// Recent returns up to limit strategies, most recently run first.
func (s *StrategyService) Recent(ctx context.Context, limit int) ([]models.Strategy, error) {
	var strategies []models.Strategy
	err := s.db.WithContext(ctx).Order("last_run DESC").Limit(limit).Find(&strategies).Error
	if err != nil {
		return nil, &StorageError{Op: "list strategies", Err: err}
	}
	return strategies, nil
}

func (s *StrategyService) jitter() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return -0.05 + s.rnd.Float64()*0.15
}
