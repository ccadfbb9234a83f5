package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/letwise/onboarding/internal/core/domain"
	"github.com/letwise/onboarding/internal/core/ports"
)

// MeHandler serves the authenticated user's own record.
type MeHandler struct {
	authService ports.AuthService
}

func NewMeHandler(authService ports.AuthService) *MeHandler {
	return &MeHandler{authService: authService}
}

// Me handles GET /me.
//
// @Summary      Current user
// @Tags         me
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /me [get]
func (h *MeHandler) Me(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Role handles GET /me/role.
//
// @Summary      Current user's role
// @Tags         me
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  roleResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /me/role [get]
func (h *MeHandler) Role(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roleResponse{Role: string(user.Role)})
}

// Profile handles GET /me/profile.
//
// @Summary      Current user's profile
// @Tags         me
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /me/profile [get]
func (h *MeHandler) Profile(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profileResponse{Role: string(user.Role), Details: user.Profile})
}

func (h *MeHandler) currentUser(c echo.Context) (*domain.User, error) {
	key, err := ctxUserKey(c)
	if err != nil {
		return nil, err
	}
	return h.authService.CurrentUser(c.Request().Context(), key)
}
