package publisher

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SimulatedPublisher pretends to publish and estimates the revenue of the post.
type SimulatedPublisher struct {
	name       string
	minRevenue float64
	maxRevenue float64

	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func NewSimulatedPublisher(name string, minRevenue, maxRevenue float64, rnd *rand.Rand) *SimulatedPublisher {
	if maxRevenue < minRevenue {
		minRevenue, maxRevenue = maxRevenue, minRevenue
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &SimulatedPublisher{
		name:       name,
		minRevenue: minRevenue,
		maxRevenue: maxRevenue,
		rnd:        rnd,
		now:        time.Now,
	}
}

func (p *SimulatedPublisher) GetPlatformName() string {
	return p.name
}

func (p *SimulatedPublisher) Publish(ctx context.Context, content PublishContent) (*PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if content.ID == "" {
		return nil, fmt.Errorf("content id required")
	}

	p.mu.Lock()
	revenue := p.minRevenue + p.rnd.Float64()*(p.maxRevenue-p.minRevenue)
	p.mu.Unlock()

	return &PublishResult{
		Platform:    p.name,
		Success:     true,
		PublishID:   fmt.Sprintf("%s-%s", p.name, uuid.NewString()),
		EstRevenue:  revenue,
		PublishedAt: p.now(),
	}, nil
}
