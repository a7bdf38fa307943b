// Package limiter defines interfaces and implementations for sign-in rate limiting.
package limiter

import (
	"context"
	"time"

	"github.com/mhmtalitas/parkmeter/internal/model"
)

// Limiter controls sign-in attempts and temporary lockouts per
// (principal address, client IP).
type Limiter interface {
	// Allow reports whether sign-in is currently allowed and optional retry-after.
	Allow(ctx context.Context, addr model.Principal, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful sign-in.
	Success(ctx context.Context, addr model.Principal, ipHash []byte) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, addr model.Principal, ipHash []byte) (bool, time.Duration, error)
}
