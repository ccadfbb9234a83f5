package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/letwise/onboarding/internal/api/metrics"
	"github.com/letwise/onboarding/internal/core/domain"
	"github.com/letwise/onboarding/internal/core/ports"
)

// TokenHandler exchanges the session cookie for an access token and serves
// the OpenID-style discovery documents.
type TokenHandler struct {
	tokens  ports.TokenService
	cookies SessionCookies
}

func NewTokenHandler(tokens ports.TokenService, cookies SessionCookies) *TokenHandler {
	return &TokenHandler{tokens: tokens, cookies: cookies}
}

// Token returns a signed access token for the session owner and refreshes the cookie.
//
// @Summary      Issue an access token
// @Tags         auth
// @Produce      plain
// @Success      200  {string}  string  "Signed JWT"
// @Failure      401  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /auth/token [get]
func (h *TokenHandler) Token(c echo.Context) error {
	sid := sessionID(c)
	if sid == "" {
		metrics.SessionVerificationsTotal.WithLabelValues("invalid").Inc()
		return domain.ErrInvalidSession
	}

	token, _, err := h.tokens.IssueToken(c.Request().Context(), sid)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSession) {
			metrics.SessionVerificationsTotal.WithLabelValues("invalid").Inc()
		} else {
			metrics.SessionVerificationsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.SessionVerificationsTotal.WithLabelValues("ok").Inc()
	metrics.TokensIssuedTotal.Inc()
	h.cookies.Set(c, sid)
	return c.String(http.StatusOK, token)
}

// Discovery serves the OpenID configuration document.
//
// @Summary      OpenID configuration
// @Tags         well-known
// @Produce      json
// @Success      200  {object}  domain.Discovery
// @Router       /.well-known/openid-configuration [get]
func (h *TokenHandler) Discovery(c echo.Context) error {
	return c.JSON(http.StatusOK, h.tokens.Discovery())
}

// JWKS serves the public signing keys.
//
// @Summary      JSON Web Key Set
// @Tags         well-known
// @Produce      json
// @Success      200  {object}  object
// @Router       /.well-known/jwks.json [get]
func (h *TokenHandler) JWKS(c echo.Context) error {
	return c.JSON(http.StatusOK, h.tokens.JWKS())
}
