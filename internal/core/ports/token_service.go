package ports

import (
	"context"
	"time"

	"github.com/go-jose/go-jose/v4"

	"github.com/letwise/onboarding/internal/core/domain"
)

// TokenSigner signs and verifies access tokens with the service key.
type TokenSigner interface {
	Sign(claims domain.TokenClaims) (string, error)
	Verify(token string) (*domain.TokenClaims, error)
	KeySet() jose.JSONWebKeySet
}

// TokenService issues access tokens for session holders and publishes the
// material needed to verify them.
type TokenService interface {
	IssueToken(ctx context.Context, sessionID string) (string, time.Time, error)
	VerifyToken(token string) (*domain.TokenClaims, error)
	Discovery() domain.Discovery
	JWKS() jose.JSONWebKeySet
}
