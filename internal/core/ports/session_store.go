package ports

import (
	"context"
	"time"

	"github.com/letwise/onboarding/internal/core/domain"
)

// SessionStore persists sessions by opaque id.
type SessionStore interface {
	Create(ctx context.Context, userID string, expiration time.Time) (string, error)
	// Get returns (nil, nil) for unknown or malformed ids.
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	// Patch moves the expiration. It returns domain.ErrSessionNotFound if the
	// session disappeared in the meantime.
	Patch(ctx context.Context, sessionID string, expiration time.Time) error
	Delete(ctx context.Context, sessionID string) error
}
