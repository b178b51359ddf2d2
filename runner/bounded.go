package runner

import (
	"context"
	"sync/atomic"

	"github.com/use-agent/renderscraper/metrics"
	"github.com/use-agent/renderscraper/models"
	"golang.org/x/sync/semaphore"
)

// Bounded limits the number of concurrent invocations of the wrapped
// runner. Each invocation launches its own browser.
type Bounded struct {
	next     Runner
	sem      *semaphore.Weighted
	max      int
	inFlight atomic.Int32
}

// NewBounded wraps next with a limit of max concurrent runs (minimum 1).
func NewBounded(next Runner, max int) *Bounded {
	if max < 1 {
		max = 1
	}
	return &Bounded{
		next: next,
		sem:  semaphore.NewWeighted(int64(max)),
		max:  max,
	}
}

func (b *Bounded) Run(ctx context.Context, url string) (models.ProductResult, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return models.ProductResult{}, timeoutError(err)
	}
	defer b.sem.Release(1)

	b.inFlight.Add(1)
	metrics.InFlight.Inc()
	defer func() {
		b.inFlight.Add(-1)
		metrics.InFlight.Dec()
	}()

	return b.next.Run(ctx, url)
}

// InFlight returns the number of invocations currently running.
func (b *Bounded) InFlight() int { return int(b.inFlight.Load()) }

// MaxConcurrent returns the configured limit.
func (b *Bounded) MaxConcurrent() int { return b.max }
