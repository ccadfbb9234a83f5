package ports

import (
	"context"

	"github.com/letwise/onboarding/internal/core/domain"
)

// EventPublisher announces onboarding events to downstream consumers.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegistered) error
}
