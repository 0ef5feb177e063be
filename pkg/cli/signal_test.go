package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waymap/waymap/pkg/defaults"
	"github.com/waymap/waymap/pkg/finding"
)

func TestSignalContext_CancelOnInterrupt(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	var notice bytes.Buffer
	ctx, cancel := signalContextWithNotifier(context.Background(), 5*time.Second, &notice, sigChan, nil)
	defer cancel()

	sigChan <- os.Interrupt

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled after signal")
	}
	assert.ErrorIs(t, context.Cause(ctx), finding.ErrInterrupted)
	assert.True(t, Interrupted(ctx))
}

func TestSignalContext_ManualCancel(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	ctx, cancel := signalContextWithNotifier(context.Background(), 5*time.Second, nil, sigChan, nil)

	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled after manual cancel")
	}
	assert.False(t, Interrupted(ctx))
	assert.True(t, errors.Is(context.Cause(ctx), context.Canceled))
}

func TestSignalContext_ParentCancel(t *testing.T) {
	parent, parentCancel := context.WithCancel(context.Background())
	ctx, cancel := signalContextWithNotifier(parent, 5*time.Second, nil, make(chan os.Signal, 1), nil)
	defer cancel()

	parentCancel()
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("child was not cancelled with parent")
	}
	assert.False(t, Interrupted(ctx))
}

func TestSignalContext_GracePeriod_SecondSignalExits(t *testing.T) {
	sigChan := make(chan os.Signal, 2)
	var exitCode atomic.Int32
	exitCode.Store(-1)

	exitFn := func(code int) {
		exitCode.Store(int32(code))
	}

	var notice bytes.Buffer
	ctx, cancel := signalContextWithNotifier(context.Background(), 5*time.Second, &notice, sigChan, exitFn)
	defer cancel()

	sigChan <- os.Interrupt

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled after first signal")
	}

	sigChan <- os.Interrupt

	require.Eventually(t, func() bool {
		return exitCode.Load() == defaults.ExitInterrupted
	}, 2*time.Second, 10*time.Millisecond, "exitFn was not called after second signal")
}

func TestSignalContext_GracePeriod_Expires(t *testing.T) {
	sigChan := make(chan os.Signal, 2)
	var exitCalled atomic.Bool

	exitFn := func(int) {
		exitCalled.Store(true)
	}

	ctx, cancel := signalContextWithNotifier(context.Background(), 50*time.Millisecond, nil, sigChan, exitFn)
	defer cancel()

	sigChan <- os.Interrupt
	<-ctx.Done()

	time.Sleep(150 * time.Millisecond)
	sigChan <- os.Interrupt
	time.Sleep(50 * time.Millisecond)

	assert.False(t, exitCalled.Load(), "exitFn must not run after the grace period")
}
