package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxUserKey extracts the identity injected by the Auth middleware and fails
// fast when the middleware did not run.
func ctxUserKey(c echo.Context) (string, error) {
	key, _ := c.Get("user_key").(string)
	if key == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return key, nil
}
