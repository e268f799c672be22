// Package ratelimit bounds request rates per key using fixed windows.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// Limiter counts hits per key within a window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
