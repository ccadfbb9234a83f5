package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type signUpRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"     validate:"required,oneof=Tenant Landlord Maintenance Cleaner"`
	// Profile is the role-specific payload, either flat or wrapped as {"details": {...}}.
	Profile map[string]any `json:"profile" swaggertype:"object"`
}

type signInRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type roleResponse struct {
	Role string `json:"role"`
}

type profileResponse struct {
	Role    string `json:"role"`
	Details any    `json:"details"`
}
