// Package ratelimit gates outbound collaborator calls with a fixed quota per time window.
// Window state (count and window start) lives in a StateStore so it survives restarts and
// can be shared between processes.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ulule/limiter/v3"
)

// ErrLimitExceeded is returned when the quota for the current window is used up
var ErrLimitExceeded = errors.New("rate limit exceeded")

// State is the persisted window state for one key
type State struct {
	Count       int64
	WindowStart time.Time
}

// StateStore atomically takes one unit from the window identified by key.
// It returns the state after the attempt and whether the unit was granted.
type StateStore interface {
	Take(ctx context.Context, key string, limit int64, window time.Duration, now time.Time) (State, bool, error)
}

// Limiter is a fixed-quota window counter. Calls never block or queue.
type Limiter struct {
	store  StateStore
	key    string
	limit  int64
	window time.Duration
	now    func() time.Time
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a limiter allowing limit calls per window under key
func New(store StateStore, key string, limit int64, window time.Duration, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %s", window)
	}
	l := &Limiter{
		store:  store,
		key:    key,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// NewFromFormatted creates a limiter from a rate string such as "30-M" or "1000-H"
func NewFromFormatted(store StateStore, key, formatted string, opts ...Option) (*Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", formatted, err)
	}
	return New(store, key, rate.Limit, rate.Period, opts...)
}

// Allow consumes one unit of the current window or returns ErrLimitExceeded
func (l *Limiter) Allow(ctx context.Context) error {
	_, ok, err := l.store.Take(ctx, l.key, l.limit, l.window, l.now())
	if err != nil {
		return fmt.Errorf("failed to read rate limit state: %w", err)
	}
	if !ok {
		return ErrLimitExceeded
	}
	return nil
}

// Limit returns the quota per window
func (l *Limiter) Limit() int64 {
	return l.limit
}

// Window returns the window length
func (l *Limiter) Window() time.Duration {
	return l.window
}

// nextState applies one take to s. A window that has fully elapsed starts over at now.
func nextState(s State, limit int64, window time.Duration, now time.Time) (State, bool) {
	if s.WindowStart.IsZero() || now.Sub(s.WindowStart) >= window || now.Before(s.WindowStart) {
		s = State{WindowStart: now}
	}
	if s.Count >= limit {
		return s, false
	}
	s.Count++
	return s, true
}
