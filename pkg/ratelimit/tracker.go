package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	cooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_rate_limit_cooldowns_total",
		Help: "Total number of throttled responses that opened a cool-down window",
	})

	cooldownWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_rate_limit_wait_seconds",
		Help:    "Time requests spent waiting for a cool-down window to pass",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})
)

// Tracker records throttling responses and gates requests until the cool-down passes.
// With a Redis client the state is shared between concurrent exporter processes;
// without one it lives in memory.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	mu    sync.Mutex
	local State

	sleep func(ctx context.Context, d time.Duration) error
}

// NewTracker creates a tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		sleep:  sleepContext,
	}
}

// GetState returns the current cool-down state. When Redis cannot be read the
// in-process state is used instead.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	if t.redis != nil {
		millis, err := t.redis.Get(ctx, RedisKeyCooldownUntil).Int64()
		switch {
		case err == nil:
			return &State{CooldownUntil: time.UnixMilli(millis)}, nil
		case errors.Is(err, redis.Nil):
			return &State{}, nil
		default:
			t.logger.Warn().Err(err).Msg("Failed to read cooldown from Redis, using local state")
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	state := t.local
	return &state, nil
}

// RecordResponse opens a cool-down window when statusCode signals throttling.
// Other responses are ignored. An existing longer window is never shortened.
// The window is always kept in process; a failed Redis write is returned
// after the local state has been updated.
func (t *Tracker) RecordResponse(ctx context.Context, statusCode int, headers http.Header) error {
	if !IsThrottled(statusCode) {
		return nil
	}

	wait := ParseRetryAfter(headers)
	until := time.Now().Add(wait)

	current, err := t.GetState(ctx)
	if err != nil {
		return err
	}
	if current.CooldownUntil.After(until) {
		return nil
	}

	t.mu.Lock()
	if until.After(t.local.CooldownUntil) {
		t.local.CooldownUntil = until
	}
	t.mu.Unlock()

	cooldownsTotal.Inc()
	t.logger.Warn().
		Int("status", statusCode).
		Dur("cooldown", wait).
		Msg("Storefront throttled requests, cooling down")

	if t.redis != nil {
		if err := t.redis.Set(ctx, RedisKeyCooldownUntil, until.UnixMilli(), wait).Err(); err != nil {
			return fmt.Errorf("store cooldown deadline: %w", err)
		}
	}
	return nil
}

// Wait blocks until any active cool-down has passed or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.GetState(ctx)
	if err != nil {
		return err
	}

	remaining := state.Remaining()
	if remaining <= 0 {
		return nil
	}

	t.logger.Info().Dur("wait", remaining).Msg("Waiting for rate limit cool-down")
	cooldownWaitSeconds.Observe(remaining.Seconds())

	return t.sleep(ctx, remaining)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
