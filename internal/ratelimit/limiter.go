// Package ratelimit defines the throttle applied before each gateway send.
package ratelimit

import "context"

// Limiter throttles delivery attempts per transport key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}

// Unlimited never throttles. It stands in when no shared store is configured.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }

func (Unlimited) Wait(context.Context, string) error { return nil }
