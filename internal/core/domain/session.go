package domain

import "time"

// DefaultSessionDuration is the sliding window a session stays valid after its last use.
const DefaultSessionDuration = 30 * 24 * time.Hour

// Session is one authenticated browser session.
type Session struct {
	ID     string
	UserID string
	// ExpirationTime is an absolute timestamp in milliseconds since the Unix epoch.
	ExpirationTime int64
}

// ExpiredAt reports whether the session is no longer valid at now.
// A session expiring exactly at now is still valid.
func (s *Session) ExpiredAt(now time.Time) bool {
	return s.ExpirationTime < now.UnixMilli()
}

// TokenClaims is the identity carried by an issued access token.
type TokenClaims struct {
	Subject   string
	Role      Role
	Email     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Discovery is the OpenID-style configuration document.
type Discovery struct {
	Issuer                string `json:"issuer"`
	JWKSURI               string `json:"jwks_uri"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
}
