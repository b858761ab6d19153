package authpipe

import (
	"context"
	"time"
)

type callTimeoutContextKey struct{}

// WithCallTimeout overrides Config.Transport.Timeout for calls made with ctx. Each
// physical attempt gets its own deadline.
func WithCallTimeout(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, callTimeoutContextKey{}, d)
}

func callTimeoutFromContext(ctx context.Context, fallback time.Duration) time.Duration {
	if ctx == nil {
		return fallback
	}
	d, ok := ctx.Value(callTimeoutContextKey{}).(time.Duration)
	if !ok || d <= 0 {
		return fallback
	}
	return d
}
