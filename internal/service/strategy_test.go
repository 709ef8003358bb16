package service

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ifuryst/affpress/internal/models"
)

func TestStrategyEnsureDefaultIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	svc := NewStrategyService(db, zap.NewNop(), nil)
	ctx := context.Background()

	require.NoError(t, svc.EnsureDefault(ctx))
	require.NoError(t, svc.EnsureDefault(ctx))

	strategies, err := svc.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, strategies, 1)
	assert.Equal(t, DefaultStrategyName, strategies[0].Name)
	assert.Equal(t, 1.0, strategies[0].Score)
}

func TestStrategyOptimizeKeepsScoreInRange(t *testing.T) {
	db := openTestDB(t)
	svc := NewStrategyService(db, zap.NewNop(), rand.New(rand.NewPCG(3, 4)))
	ctx := context.Background()
	require.NoError(t, svc.EnsureDefault(ctx))

	before, err := svc.Recent(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Optimize(ctx))

	after, err := svc.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.GreaterOrEqual(t, after[0].Score, 0.95)
	assert.Less(t, after[0].Score, 1.1)
	assert.False(t, after[0].LastRun.Before(before[0].LastRun))
}

func TestStrategyOptimizeFloorsScore(t *testing.T) {
	db := openTestDB(t)
	svc := NewStrategyService(db, zap.NewNop(), nil)
	ctx := context.Background()
	require.NoError(t, db.Create(&models.Strategy{ID: "low", Name: "low", Score: 0.01}).Error)

	require.NoError(t, svc.Optimize(ctx))

	var st models.Strategy
	require.NoError(t, db.First(&st, "id = ?", "low").Error)
	assert.Equal(t, 0.1, st.Score)
}
