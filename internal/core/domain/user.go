package domain

import (
	"slices"
	"strings"
	"time"
)

// Role is the onboarding role a user registers with. It selects the profile variant.
type Role string

const (
	RoleTenant      Role = "Tenant"
	RoleLandlord    Role = "Landlord"
	RoleMaintenance Role = "Maintenance"
	RoleCleaner     Role = "Cleaner"
)

// Roles lists every accepted role in display order.
var Roles = []Role{RoleTenant, RoleLandlord, RoleMaintenance, RoleCleaner}

// Valid reports whether r is one of the four enumerated roles.
func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

// ParseRole converts raw input into a Role, failing with a ValidationError
// before any profile field is looked at.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", &ValidationError{Role: s, Field: "role", Reason: "must be one of " + roleList()}
	}
	return r, nil
}

func roleList() string {
	names := make([]string, len(Roles))
	for i, r := range Roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// User models a registered principal.
type User struct {
	ID           string    `json:"id"`
	UserKey      string    `json:"userId"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Profile      Profile   `json:"profile,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserPatch carries the fields that may change after registration.
// Nil fields are left untouched. Role and profile are fixed at registration.
type UserPatch struct {
	PasswordHash *string
}

// NormalizeEmail trims and lower-cases an email so that uniqueness is case-insensitive.
// The normalized email doubles as the user's identity key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRegistered is published after a successful sign-up.
type UserRegistered struct {
	UserID     string    `json:"userId"`
	UserKey    string    `json:"userKey"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	OccurredAt time.Time `json:"occurredAt"`
}
