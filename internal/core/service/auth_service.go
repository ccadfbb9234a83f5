package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/letwise/onboarding/internal/core/domain"
	"github.com/letwise/onboarding/internal/core/ports"
	"github.com/letwise/onboarding/pkg/logger"
)

// AuthService implements registration, sign-in and session lifecycle.
type AuthService struct {
	users      ports.UserRepository
	sessions   ports.SessionStore
	hasher     ports.PasswordHasher
	events     ports.EventPublisher
	sessionTTL time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithClock replaces time.Now; tests use it to control expiry.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func WithEventPublisher(p ports.EventPublisher) AuthOption {
	return func(s *AuthService) { s.events = p }
}

func WithLogger(log zerolog.Logger) AuthOption {
	return func(s *AuthService) { s.log = log }
}

func NewAuthService(
	users ports.UserRepository,
	sessions ports.SessionStore,
	hasher ports.PasswordHasher,
	sessionTTL time.Duration,
	opts ...AuthOption,
) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = domain.DefaultSessionDuration
	}
	s := &AuthService{
		users:      users,
		sessions:   sessions,
		hasher:     hasher,
		sessionTTL: sessionTTL,
		now:        time.Now,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionTTL is the sliding window applied on creation and on every refresh.
func (s *AuthService) SessionTTL() time.Duration { return s.sessionTTL }

// SignUp registers a user and opens their first session. Input is fully
// validated before the stores are touched.
func (s *AuthService) SignUp(ctx context.Context, in ports.SignUpInput) (string, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return "", &domain.ValidationError{Field: "email", Reason: "is required"}
	}
	if in.Password == "" {
		return "", &domain.ValidationError{Field: "password", Reason: "is required"}
	}
	role, err := domain.ParseRole(strings.TrimSpace(in.Role))
	if err != nil {
		return "", err
	}
	profile, err := domain.NormalizeProfile(role, in.Profile)
	if err != nil {
		return "", err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("find user by email: %w", err)
	}
	if existing != nil {
		return "", domain.ErrUserExists
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		UserKey:      email,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Profile:      profile,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	id, err := s.users.Insert(ctx, user)
	if err != nil {
		// Lost the race against a concurrent sign-up with the same email.
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return "", domain.ErrUserExists
		}
		return "", fmt.Errorf("insert user: %w", err)
	}

	sessionID, err := s.createSession(ctx, id)
	if err != nil {
		return "", err
	}

	s.publishRegistered(ctx, domain.UserRegistered{
		UserID:     id,
		UserKey:    email,
		Email:      email,
		Role:       role,
		OccurredAt: now,
	})

	s.log.Info().
		Str("user_id", id).
		Str("email", logger.MaskEmail(email)).
		Str("role", string(role)).
		Msg("user registered")
	return sessionID, nil
}

// SignIn checks credentials and opens a new session. Existing sessions of the
// user are left alone.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return "", &domain.ValidationError{Field: "email", Reason: "is required"}
	}
	if password == "" {
		return "", &domain.ValidationError{Field: "password", Reason: "is required"}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("find user by email: %w", err)
	}
	if user == nil {
		return "", domain.ErrEmailNotFound
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("stored password hash is unreadable")
		return "", domain.ErrIncorrectPassword
	}
	if !ok {
		return "", domain.ErrIncorrectPassword
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	return s.createSession(ctx, user.ID)
}

// SignOut deletes the session. Unknown or empty ids are not an error.
func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// VerifyAndRefresh returns the owner of a live session and slides its
// expiration to now + TTL. Expired sessions are removed.
func (s *AuthService) VerifyAndRefresh(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", domain.ErrInvalidSession
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return "", domain.ErrInvalidSession
	}

	now := s.now()
	if sess.ExpiredAt(now) {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			s.log.Warn().Err(err).Msg("failed to delete expired session")
		}
		return "", domain.ErrInvalidSession
	}

	if err := s.sessions.Patch(ctx, sessionID, now.Add(s.sessionTTL)); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return "", domain.ErrInvalidSession
		}
		return "", fmt.Errorf("refresh session: %w", err)
	}
	return sess.UserID, nil
}

// CurrentUser resolves the identity key carried by an access token.
func (s *AuthService) CurrentUser(ctx context.Context, userKey string) (*domain.User, error) {
	if userKey == "" {
		return nil, domain.ErrUserNotFound
	}
	user, err := s.users.FindByUserKey(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("find user by key: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) createSession(ctx context.Context, userID string) (string, error) {
	id, err := s.sessions.Create(ctx, userID, s.now().Add(s.sessionTTL))
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// upgradeHash re-hashes a password stored under an older scheme. Failures
// are logged; the sign-in still succeeds.
func (s *AuthService) upgradeHash(ctx context.Context, user *domain.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("password rehash failed")
		return
	}
	if err := s.users.Patch(ctx, user.ID, domain.UserPatch{PasswordHash: &hash}); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("password rehash not stored")
		return
	}
	s.log.Info().Str("user_id", user.ID).Msg("password hash upgraded")
}

func (s *AuthService) publishRegistered(ctx context.Context, event domain.UserRegistered) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishUserRegistered(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("user_id", event.UserID).Msg("failed to publish user registered event")
	}
}
