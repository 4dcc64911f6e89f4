package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/time-import/internal/ratelimit"
)

// Allower is satisfied by *ratelimit.Limiter
type Allower interface {
	Allow(ctx context.Context) error
}

// RateLimitedCollaborator gates every call of the wrapped collaborator on a shared quota.
// An exhausted quota fails fast with ErrRateLimited.
type RateLimitedCollaborator struct {
	next    Collaborator
	limiter Allower
}

// NewRateLimitedCollaborator wraps next with limiter
func NewRateLimitedCollaborator(next Collaborator, limiter Allower) *RateLimitedCollaborator {
	return &RateLimitedCollaborator{next: next, limiter: limiter}
}

func (r *RateLimitedCollaborator) allow(ctx context.Context) error {
	err := r.limiter.Allow(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, ratelimit.ErrLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return err
}

// MapColumns implements Collaborator
func (r *RateLimitedCollaborator) MapColumns(ctx context.Context, req MapColumnsRequest) (*MapColumnsResponse, error) {
	if err := r.allow(ctx); err != nil {
		return nil, err
	}
	return r.next.MapColumns(ctx, req)
}

// GuessCategories implements Collaborator
func (r *RateLimitedCollaborator) GuessCategories(ctx context.Context, req GuessCategoriesRequest) (*GuessCategoriesResponse, error) {
	if err := r.allow(ctx); err != nil {
		return nil, err
	}
	return r.next.GuessCategories(ctx, req)
}

// ParseFreeform implements Collaborator
func (r *RateLimitedCollaborator) ParseFreeform(ctx context.Context, req ParseFreeformRequest) (*ParseFreeformResponse, error) {
	if err := r.allow(ctx); err != nil {
		return nil, err
	}
	return r.next.ParseFreeform(ctx, req)
}

// RecognizeText implements Collaborator
func (r *RateLimitedCollaborator) RecognizeText(ctx context.Context, req RecognizeTextRequest) (*RecognizeTextResponse, error) {
	if err := r.allow(ctx); err != nil {
		return nil, err
	}
	return r.next.RecognizeText(ctx, req)
}

var _ Collaborator = (*RateLimitedCollaborator)(nil)

// NewCollaborator resolves the named provider from the default registry and, when limiter
// is non-nil, gates it on that quota
func NewCollaborator(provider string, cfg ProviderConfig, limiter Allower) (Collaborator, error) {
	c, err := DefaultRegistry().GetProvider(provider, cfg)
	if err != nil {
		return nil, err
	}
	if limiter == nil {
		return c, nil
	}
	return NewRateLimitedCollaborator(c, limiter), nil
}
