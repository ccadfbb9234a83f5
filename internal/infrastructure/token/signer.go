package token

import (
	"crypto"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/letwise/onboarding/internal/core/domain"
)

const algorithm = "RS256"

type accessClaims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Signer issues RS256 tokens. The key id is the RFC 7638 thumbprint of the public key.
type Signer struct {
	key      *rsa.PrivateKey
	keyID    string
	issuer   string
	audience string
}

func NewSigner(key *rsa.PrivateKey, issuer, audience string) (*Signer, error) {
	if key == nil {
		return nil, errors.New("signing key is required")
	}
	jwk := jose.JSONWebKey{Key: &key.PublicKey}
	thumb, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("key thumbprint: %w", err)
	}
	return &Signer{
		key:      key,
		keyID:    base64.RawURLEncoding.EncodeToString(thumb),
		issuer:   issuer,
		audience: audience,
	}, nil
}

func (s *Signer) KeyID() string { return s.keyID }

func (s *Signer) Sign(claims domain.TokenClaims) (string, error) {
	c := accessClaims{
		Role:  string(claims.Role),
		Email: claims.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   claims.Subject,
			Audience:  jwt.ClaimStrings{s.audience},
			ID:        claims.ID,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	t.Header["kid"] = s.keyID
	signed, err := t.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token issued by this signer. Any failure wraps domain.ErrInvalidToken.
func (s *Signer) Verify(raw string) (*domain.TokenClaims, error) {
	var c accessClaims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		if kid, _ := t.Header["kid"].(string); kid != "" && kid != s.keyID {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return &s.key.PublicKey, nil
	},
		jwt.WithValidMethods([]string{algorithm}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	out := &domain.TokenClaims{
		Subject: c.Subject,
		Role:    domain.Role(c.Role),
		Email:   c.Email,
		ID:      c.ID,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out, nil
}

// KeySet returns the public half of the signing key as a JWKS.
func (s *Signer) KeySet() jose.JSONWebKeySet {
	return jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{{
			Key:       &s.key.PublicKey,
			KeyID:     s.keyID,
			Algorithm: algorithm,
			Use:       "sig",
		}},
	}
}
