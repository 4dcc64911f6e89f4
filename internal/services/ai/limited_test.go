package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benvon/time-import/internal/ratelimit"
)

type countingCollaborator struct {
	DisabledCollaborator
	calls int
}

func (c *countingCollaborator) MapColumns(context.Context, MapColumnsRequest) (*MapColumnsResponse, error) {
	c.calls++
	return &MapColumnsResponse{}, nil
}

func TestRateLimitedCollaborator(t *testing.T) {
	t.Parallel()

	limiter, err := ratelimit.New(ratelimit.NewMemoryStore(), "collaborator", 1, time.Hour)
	if err != nil {
		t.Fatalf("ratelimit.New() error = %v", err)
	}
	next := &countingCollaborator{}
	c := NewRateLimitedCollaborator(next, limiter)
	ctx := context.Background()

	if _, err := c.MapColumns(ctx, MapColumnsRequest{}); err != nil {
		t.Fatalf("first call error = %v", err)
	}
	_, err = c.MapColumns(ctx, MapColumnsRequest{})
	if !errors.Is(err, ErrRateLimited) || !errors.Is(err, ratelimit.ErrLimitExceeded) {
		t.Errorf("second call error = %v, want ErrRateLimited wrapping ErrLimitExceeded", err)
	}
	if next.calls != 1 {
		t.Errorf("wrapped collaborator called %d times, want 1", next.calls)
	}
	if !IsRateLimitError(err) {
		t.Error("IsRateLimitError should report the local limit")
	}
}

func TestDisabledCollaborator(t *testing.T) {
	t.Parallel()

	c := NewDisabledCollaborator()
	ctx := context.Background()

	_, err := c.RecognizeText(ctx, RecognizeTextRequest{Image: "data:,"})
	if !IsAuthorizationError(err) {
		t.Errorf("RecognizeText error = %v, want authorization required", err)
	}
	if _, err := c.GuessCategories(ctx, GuessCategoriesRequest{}); !errors.Is(err, ErrAuthorizationRequired) {
		t.Errorf("GuessCategories error = %v", err)
	}
}

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()

	c, err := r.GetProvider("openai", ProviderConfig{})
	if err != nil {
		t.Fatalf("GetProvider(openai) error = %v", err)
	}
	if _, ok := c.(*DisabledCollaborator); !ok {
		t.Errorf("openai without key = %T, want *DisabledCollaborator", c)
	}

	c, err = r.GetProvider("openai", ProviderConfig{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("GetProvider(openai) error = %v", err)
	}
	if _, ok := c.(*OpenAIProvider); !ok {
		t.Errorf("openai with key = %T, want *OpenAIProvider", c)
	}

	var notFound *ErrProviderNotFound
	if _, err := r.GetProvider("bard", ProviderConfig{}); !errors.As(err, &notFound) {
		t.Errorf("unknown provider error = %v", err)
	}
}

func TestNewCollaborator(t *testing.T) {
	t.Parallel()

	c, err := NewCollaborator("disabled", ProviderConfig{}, nil)
	if err != nil {
		t.Fatalf("NewCollaborator() error = %v", err)
	}
	if _, ok := c.(*DisabledCollaborator); !ok {
		t.Errorf("without limiter = %T, want *DisabledCollaborator", c)
	}

	limiter, err := ratelimit.NewFromFormatted(ratelimit.NewMemoryStore(), "collaborator", "30-M")
	if err != nil {
		t.Fatal(err)
	}
	c, err = NewCollaborator("openai", ProviderConfig{APIKey: "sk-test"}, limiter)
	if err != nil {
		t.Fatalf("NewCollaborator() error = %v", err)
	}
	if _, ok := c.(*RateLimitedCollaborator); !ok {
		t.Errorf("with limiter = %T, want *RateLimitedCollaborator", c)
	}

	if _, err := NewCollaborator("bard", ProviderConfig{}, limiter); err == nil {
		t.Error("expected error for unknown provider")
	}
}
