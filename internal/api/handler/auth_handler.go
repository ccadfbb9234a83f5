package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/letwise/onboarding/internal/api/metrics"
	"github.com/letwise/onboarding/internal/core/domain"
	"github.com/letwise/onboarding/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	cookies     SessionCookies
	log         zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, cookies SessionCookies, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies, log: log}
}

// SignUp registers a user and starts a session.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Credentials, role and role-specific profile"
// @Success      200   "Session cookie set"
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/signUp [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := domain.CheckProfileShape(req.Role, req.Profile); err != nil {
		return err
	}

	sid, err := h.authService.SignUp(c.Request().Context(), ports.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Profile:  req.Profile,
	})
	if err != nil {
		return err
	}

	metrics.SignupsTotal.WithLabelValues(req.Role).Inc()
	h.cookies.Set(c, sid)
	return c.NoContent(http.StatusOK)
}

// SignIn authenticates a user and starts a new session.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Login credentials"
// @Success      200   "Session cookie set"
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/signIn [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sid, err := h.authService.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.SigninsTotal.WithLabelValues(signInResult(err)).Inc()
		return err
	}

	metrics.SigninsTotal.WithLabelValues("ok").Inc()
	h.cookies.Set(c, sid)
	return c.NoContent(http.StatusOK)
}

// SignOut ends the current session. It always succeeds and always clears the cookie.
//
// @Summary      Sign out
// @Tags         auth
// @Success      200   "Session cookie cleared"
// @Router       /auth/signOut [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	if err := h.authService.SignOut(c.Request().Context(), sessionID(c)); err != nil {
		h.log.Warn().
			Err(err).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("sign out failed, clearing cookie anyway")
	}
	h.cookies.Clear(c)
	return c.NoContent(http.StatusOK)
}

func signInResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmailNotFound):
		return "email_not_found"
	case errors.Is(err, domain.ErrIncorrectPassword):
		return "incorrect_password"
	default:
		return "error"
	}
}
