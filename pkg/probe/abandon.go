package probe

import (
	"context"
	"sync/atomic"
)

type abandonKey struct{}

// WithAbandon returns a context for one ProbeAll batch and a func that
// marks the batch abandoned. Probes still in flight are not cancelled; they
// finish quietly, without warning logs or probe counters, and no further
// payloads of the batch are dispatched.
func WithAbandon(ctx context.Context) (context.Context, func()) {
	flag := new(atomic.Bool)
	return context.WithValue(ctx, abandonKey{}, flag), func() { flag.Store(true) }
}

// Abandoned reports whether ctx belongs to a batch marked by WithAbandon.
func Abandoned(ctx context.Context) bool {
	flag, ok := ctx.Value(abandonKey{}).(*atomic.Bool)
	return ok && flag.Load()
}
