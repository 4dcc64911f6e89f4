package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/time-import/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrMissingSubject is returned for tokens without a sub claim
var ErrMissingSubject = errors.New("token missing subject claim")

// Verifier checks bearer tokens against a JWKS and maps them to a principal
type Verifier struct {
	keys     *JWKSManager
	issuer   string
	audience string
}

// NewVerifier creates a verifier. An empty audience skips the aud check.
func NewVerifier(keys *JWKSManager, issuer, audience string) *Verifier {
	return &Verifier{keys: keys, issuer: issuer, audience: audience}
}

// Verify parses and validates token, returning the caller it identifies
func (v *Verifier) Verify(ctx context.Context, token string) (*models.Principal, error) {
	keys, err := v.keys.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}

	if parsed.Subject() == "" {
		return nil, ErrMissingSubject
	}

	var email string
	if raw, ok := parsed.Get("email"); ok {
		email, _ = raw.(string)
	}

	principal := models.PrincipalFromSubject(v.issuer, parsed.Subject(), email)
	return &principal, nil
}
