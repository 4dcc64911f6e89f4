package ai

import (
	"context"
)

// DisabledCollaborator is used when no provider is configured. Every call reports
// ErrAuthorizationRequired so callers fall back to heuristics.
type DisabledCollaborator struct{}

// NewDisabledCollaborator creates a collaborator that refuses every call
func NewDisabledCollaborator() *DisabledCollaborator {
	return &DisabledCollaborator{}
}

// MapColumns implements Collaborator
func (DisabledCollaborator) MapColumns(context.Context, MapColumnsRequest) (*MapColumnsResponse, error) {
	return nil, ErrAuthorizationRequired
}

// GuessCategories implements Collaborator
func (DisabledCollaborator) GuessCategories(context.Context, GuessCategoriesRequest) (*GuessCategoriesResponse, error) {
	return nil, ErrAuthorizationRequired
}

// ParseFreeform implements Collaborator
func (DisabledCollaborator) ParseFreeform(context.Context, ParseFreeformRequest) (*ParseFreeformResponse, error) {
	return nil, ErrAuthorizationRequired
}

// RecognizeText implements Collaborator
func (DisabledCollaborator) RecognizeText(context.Context, RecognizeTextRequest) (*RecognizeTextResponse, error) {
	return nil, ErrAuthorizationRequired
}

var _ Collaborator = (*DisabledCollaborator)(nil)
