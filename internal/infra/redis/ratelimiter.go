package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/clinic-dispatch/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultSendsPerSec int64 = 2
	keyPrefix                = "clinic-dispatch:sends"
	pollStep                 = 25 * time.Millisecond
	pollMax                  = 200 * time.Millisecond
	windowSeconds            = 1
)

// Fixed one-second window: the first hit sets the expiry.
var windowScript = goredis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if hits > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.Limiter = (*SendLimiter)(nil)

// SendLimiter caps gateway sends per transport across every process that
// shares the Redis instance.
type SendLimiter struct {
	client      *goredis.Client
	sendsPerSec int64
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewSendLimiter(client *goredis.Client, sendsPerSec int) (*SendLimiter, error) {
	return newSendLimiter(client, int64(sendsPerSec), time.Now, sleepCtx)
}

func newSendLimiter(
	client *goredis.Client,
	sendsPerSec int64,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*SendLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if sendsPerSec <= 0 {
		sendsPerSec = defaultSendsPerSec
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepCtx
	}

	return &SendLimiter{
		client:      client,
		sendsPerSec: sendsPerSec,
		now:         nowFn,
		sleep:       sleepFn,
	}, nil
}

func (l *SendLimiter) Allow(ctx context.Context, transport string) (bool, error) {
	if l == nil || l.client == nil {
		return false, fmt.Errorf("send limiter is not initialized")
	}

	name := strings.ToLower(strings.TrimSpace(transport))
	if name == "" {
		return false, fmt.Errorf("transport is required")
	}

	key := fmt.Sprintf("%s:%s:%d", keyPrefix, name, l.now().UTC().Unix())
	admitted, err := windowScript.Run(ctx, l.client, []string{key}, l.sendsPerSec, windowSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate send window: %w", err)
	}

	return admitted == 1, nil
}

// Wait polls until the current window admits a send or ctx ends.
func (l *SendLimiter) Wait(ctx context.Context, transport string) error {
	delay := pollStep
	for {
		admitted, err := l.Allow(ctx, transport)
		if err != nil {
			return err
		}
		if admitted {
			return nil
		}

		if err := l.sleep(ctx, delay); err != nil {
			return err
		}

		delay = min(delay+pollStep, pollMax)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
