package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/waymap/waymap/pkg/defaults"
	"github.com/waymap/waymap/pkg/finding"
)

// SignalContext returns a child of parent cancelled on SIGINT/SIGTERM with
// cause finding.ErrInterrupted. If a second signal arrives during
// gracePeriod, the process exits with defaults.ExitInterrupted.
//
// Usage:
//
//	ctx, cancel := cli.SignalContext(context.Background(), duration.ShutdownGrace, os.Stderr)
//	defer cancel()
func SignalContext(parent context.Context, gracePeriod time.Duration, notice io.Writer) (context.Context, context.CancelFunc) {
	return signalContextWithNotifier(parent, gracePeriod, notice, nil, nil)
}

// signalContextWithNotifier is the internal implementation for testing.
// sigChan, if non-nil, overrides the real signal channel.
// exitFn, if non-nil, overrides os.Exit for testing.
func signalContextWithNotifier(
	parent context.Context,
	gracePeriod time.Duration,
	notice io.Writer,
	sigChan chan os.Signal,
	exitFn func(int),
) (context.Context, context.CancelFunc) {
	ctx, cancelCause := context.WithCancelCause(parent)
	cancel := func() { cancelCause(context.Canceled) }

	ownChannel := sigChan == nil
	if ownChannel {
		sigChan = make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	}

	if exitFn == nil {
		exitFn = os.Exit
	}
	if notice == nil {
		notice = io.Discard
	}

	go func() {
		defer func() {
			if ownChannel {
				signal.Stop(sigChan)
			}
		}()

		select {
		case <-sigChan:
			fmt.Fprintln(notice)
			fmt.Fprintln(notice, "Interrupt received, stopping scan (press Ctrl+C again to force exit)...")
			cancelCause(finding.ErrInterrupted)
		case <-ctx.Done():
			return
		}

		// Wait for a second signal or grace period.
		select {
		case <-sigChan:
			exitFn(defaults.ExitInterrupted)
		case <-time.After(gracePeriod):
		}
	}()

	return ctx, cancel
}

// Interrupted reports whether ctx was cancelled by a signal.
func Interrupted(ctx context.Context) bool {
	return context.Cause(ctx) == finding.ErrInterrupted
}
