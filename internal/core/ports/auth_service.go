package ports

import (
	"context"

	"github.com/letwise/onboarding/internal/core/domain"
)

// SignUpInput is the DTO passed from the transport layer to AuthService.SignUp.
type SignUpInput struct {
	Email    string
	Password string
	Role     string
	// Profile is the untyped role-specific payload; it is validated and
	// normalized into a domain.Profile by the service.
	Profile map[string]any
}

// SessionVerifier resolves a session id to its owning user id, sliding the expiration forward.
type SessionVerifier interface {
	VerifyAndRefresh(ctx context.Context, sessionID string) (string, error)
}

type AuthService interface {
	SessionVerifier
	SignUp(ctx context.Context, in SignUpInput) (string, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	SignOut(ctx context.Context, sessionID string) error
	CurrentUser(ctx context.Context, userKey string) (*domain.User, error)
}
