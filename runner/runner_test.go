package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/renderscraper/config"
	"github.com/use-agent/renderscraper/models"
)

type coreFunc func(ctx context.Context, url string) models.ProductResult

func (f coreFunc) Scrape(ctx context.Context, url string) models.ProductResult { return f(ctx, url) }

func TestInProcessReturnsResult(t *testing.T) {
	core := coreFunc(func(_ context.Context, url string) models.ProductResult {
		return models.ProductResult{Title: url, Price: 1000}
	})
	res, err := NewInProcess(core, time.Second).Run(context.Background(), "https://www.coupang.com/x")
	require.NoError(t, err)
	assert.Equal(t, models.ProductResult{Title: "https://www.coupang.com/x", Price: 1000}, res)
}

func TestInProcessTimeout(t *testing.T) {
	core := coreFunc(func(ctx context.Context, _ string) models.ProductResult {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return models.Failure("late")
	})
	_, err := NewInProcess(core, 20*time.Millisecond).Run(context.Background(), "u")

	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeTimeout, se.Code)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInProcessRecoversPanic(t *testing.T) {
	core := coreFunc(func(context.Context, string) models.ProductResult { panic("boom") })
	res, err := NewInProcess(core, time.Second).Run(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, models.Failure("boom"), res)
}

func TestNewSelectsMode(t *testing.T) {
	core := coreFunc(func(context.Context, string) models.ProductResult { return models.ProductResult{} })

	r, err := New(config.RunnerConfig{Mode: ModeInProcess}, core)
	require.NoError(t, err)
	assert.IsType(t, &InProcess{}, r)

	r, err = New(config.RunnerConfig{Mode: ModeProcess, Binary: "/bin/true"}, core)
	require.NoError(t, err)
	assert.IsType(t, &Process{}, r)

	_, err = New(config.RunnerConfig{Mode: "carrier-pigeon"}, core)
	assert.Error(t, err)
}

// blockingRunner holds every run until release is closed.
type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingRunner) Run(ctx context.Context, _ string) (models.ProductResult, error) {
	b.started <- struct{}{}
	<-b.release
	return models.ProductResult{Price: 1}, nil
}

func TestBoundedLimitsConcurrency(t *testing.T) {
	inner := &blockingRunner{started: make(chan struct{}, 4), release: make(chan struct{})}
	b := NewBounded(inner, 2)
	assert.Equal(t, 2, b.MaxConcurrent())

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = b.Run(context.Background(), "u")
		}()
	}

	<-inner.started
	<-inner.started
	select {
	case <-inner.started:
		t.Fatal("third run started while two were in flight")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 2, b.InFlight())

	close(inner.release)
	wg.Wait()
	assert.Equal(t, 0, b.InFlight())
}

func TestBoundedQueueHonoursContext(t *testing.T) {
	inner := &blockingRunner{started: make(chan struct{}, 1), release: make(chan struct{})}
	defer close(inner.release)
	b := NewBounded(inner, 1)

	go func() { _, _ = b.Run(context.Background(), "u") }()
	<-inner.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := b.Run(ctx, "u")

	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrCodeTimeout, se.Code)
}
