package ports

import (
	"context"

	"github.com/letwise/onboarding/internal/core/domain"
)

// UserRepository is the credential store. Lookups return (nil, nil) when no
// user matches; only I/O faults are reported as errors.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByUserKey looks a user up by identity key.
	FindByUserKey(ctx context.Context, key string) (*domain.User, error)
	// Insert stores a new user and returns its id. It never overwrites: a taken
	// email yields domain.ErrDuplicateEmail.
	Insert(ctx context.Context, user *domain.User) (string, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Patch(ctx context.Context, id string, patch domain.UserPatch) error
}
