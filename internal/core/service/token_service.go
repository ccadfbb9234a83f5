package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"

	"github.com/letwise/onboarding/internal/core/domain"
	"github.com/letwise/onboarding/internal/core/ports"
)

const defaultTokenTTL = time.Hour

// TokenService exchanges a live session for a short-lived signed access token.
type TokenService struct {
	sessions ports.SessionVerifier
	users    ports.UserRepository
	signer   ports.TokenSigner
	issuer   string
	ttl      time.Duration
	now      func() time.Time
}

func NewTokenService(
	sessions ports.SessionVerifier,
	users ports.UserRepository,
	signer ports.TokenSigner,
	issuer string,
	ttl time.Duration,
) *TokenService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenService{
		sessions: sessions,
		users:    users,
		signer:   signer,
		issuer:   strings.TrimRight(issuer, "/"),
		ttl:      ttl,
		now:      time.Now,
	}
}

// IssueToken verifies and refreshes the session, then signs a token for its owner.
func (s *TokenService) IssueToken(ctx context.Context, sessionID string) (string, time.Time, error) {
	userID, err := s.sessions.VerifyAndRefresh(ctx, sessionID)
	if err != nil {
		return "", time.Time{}, err
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("get user: %w", err)
	}
	// A session whose user was removed is as good as no session.
	if user == nil {
		return "", time.Time{}, domain.ErrInvalidSession
	}

	now := s.now().UTC().Truncate(time.Second)
	exp := now.Add(s.ttl)
	token, err := s.signer.Sign(domain.TokenClaims{
		Subject:   user.UserKey,
		Role:      user.Role,
		Email:     user.Email,
		ID:        uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: exp,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

func (s *TokenService) VerifyToken(token string) (*domain.TokenClaims, error) {
	return s.signer.Verify(token)
}

func (s *TokenService) Discovery() domain.Discovery {
	return domain.Discovery{
		Issuer:                s.issuer,
		JWKSURI:               s.issuer + "/.well-known/jwks.json",
		AuthorizationEndpoint: s.issuer + "/oauth/authorize",
	}
}

func (s *TokenService) JWKS() jose.JSONWebKeySet {
	return s.signer.KeySet()
}
