package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUserExists is the conflict raised when an email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrDuplicateEmail is raised by the credential store when its unique email index rejects an insert.
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrUserNotFound   = errors.New("user not found")
	// ErrProfileMismatch guards the store against a profile variant that does not belong to the role.
	ErrProfileMismatch = errors.New("profile does not match role")

	// ErrInvalidSession covers missing, unparseable and expired session ids alike.
	ErrInvalidSession  = errors.New("invalid session cookie")
	ErrSessionNotFound = errors.New("session not found")

	ErrInvalidToken = errors.New("invalid token")
)

// AuthError rejects a sign-in attempt. Message is safe to show to the caller.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

var (
	ErrEmailNotFound     = &AuthError{Message: "Email not found"}
	ErrIncorrectPassword = &AuthError{Message: "Incorrect password"}
)

// ValidationError reports a missing or malformed role or profile field.
type ValidationError struct {
	Role   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field == "role":
		return fmt.Sprintf("invalid role %q: %s", e.Role, e.Reason)
	case e.Role == "":
		return fmt.Sprintf("%s %s", e.Field, e.Reason)
	default:
		return fmt.Sprintf("invalid profile for %s: %s %s", e.Role, e.Field, e.Reason)
	}
}
