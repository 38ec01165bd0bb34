package syncer

import (
	"context"
	"testing"
	"time"

	"coinwatch-go/internal/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSchedulerFiresAfterStartupDelay(t *testing.T) {
	fetcher := &fakeFeed{pages: [][]feed.MarketRecord{{record("bitcoin", "btc", 1, 60000)}}}
	c, catalog := newTestCoordinator(t, fetcher, testConfig(250, 250))
	s := NewScheduler(zap.NewNop(), c, time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	assert.Eventually(t, func() bool {
		n, err := catalog.Count(false)
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The tick was recorded, so a next-run estimate exists.
	assert.False(t, c.Status().NextSyncEstimate.IsZero())
}

func TestSchedulerFiresOnInterval(t *testing.T) {
	fetcher := &fakeFeed{pages: [][]feed.MarketRecord{{record("bitcoin", "btc", 1, 60000)}}}
	c, _ := newTestCoordinator(t, fetcher, testConfig(250, 250))
	s := NewScheduler(zap.NewNop(), c, 20*time.Millisecond, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// Startup firing plus at least one interval firing.
	assert.Eventually(t, func() bool {
		return fetcher.callCount() >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	fetcher := &fakeFeed{}
	c, _ := newTestCoordinator(t, fetcher, testConfig(250, 250))
	s := NewScheduler(zap.NewNop(), c, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
	require.Equal(t, 0, fetcher.callCount())
}
