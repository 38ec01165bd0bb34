package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGovernorSpacing(t *testing.T) {
	spacing := 50 * time.Millisecond
	g := NewGovernor(spacing)
	ctx := context.Background()

	start := time.Now()
	assert.NoError(t, g.Acquire(ctx)) // first call passes immediately
	assert.NoError(t, g.Acquire(ctx))
	assert.NoError(t, g.Acquire(ctx))
	elapsed := time.Since(start)

	// Two more permits after the first require two full spacings.
	assert.GreaterOrEqual(t, elapsed, 2*spacing-5*time.Millisecond)
}

func TestGovernorAcquireCancellation(t *testing.T) {
	g := NewGovernor(time.Hour)
	ctx := context.Background()
	assert.NoError(t, g.Acquire(ctx)) // exhaust the single burst slot

	cancelCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- g.Acquire(cancelCtx)
	}()
	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("cancelled Acquire did not return")
	}
}
