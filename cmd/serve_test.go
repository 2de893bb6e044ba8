package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// blockingRunner finishes its run only when ctx is cancelled or release is
// closed.
type blockingRunner struct {
	ctx     context.Context
	release chan struct{}
	running atomic.Bool
	stopped atomic.Bool
}

func (b *blockingRunner) Running() bool { return b.running.Load() }
func (b *blockingRunner) Stop()         { b.stopped.Store(true) }
func (b *blockingRunner) Wait() {
	select {
	case <-b.ctx.Done():
	case <-b.release:
	}
	b.running.Store(false)
}

func TestDrainRun_LetsCurrentItemFinish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &blockingRunner{ctx: ctx, release: make(chan struct{})}
	r.running.Store(true)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(r.release)
	}()
	drainRun(r, cancel, time.Second)

	assert.True(t, r.stopped.Load())
	assert.False(t, r.Running())
	assert.NoError(t, ctx.Err(), "run context must survive a drain that finishes in time")
}

func TestDrainRun_CancelsAfterTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &blockingRunner{ctx: ctx, release: make(chan struct{})}
	r.running.Store(true)

	drainRun(r, cancel, 20*time.Millisecond)

	assert.True(t, r.stopped.Load())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestDrainRun_Idle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &blockingRunner{ctx: ctx, release: make(chan struct{})}
	close(r.release)

	drainRun(r, cancel, time.Second)
	assert.False(t, r.stopped.Load())
}
