package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// SessionCookieName is the cookie carrying the opaque session id.
const SessionCookieName = "__session"

// SessionCookies writes the session cookie. The site is served from another
// origin and may be embedded, hence SameSite=None with Partitioned.
type SessionCookies struct {
	TTL time.Duration
	Now func() time.Time
}

func NewSessionCookies(ttl time.Duration) SessionCookies {
	return SessionCookies{TTL: ttl, Now: time.Now}
}

// Set issues the cookie for sessionID, expiring one TTL from now.
func (sc SessionCookies) Set(c echo.Context, sessionID string) {
	c.SetCookie(sc.cookie(sessionID, sc.Now().Add(sc.TTL)))
}

// Clear overwrites the cookie with an empty value expiring at the Unix epoch.
func (sc SessionCookies) Clear(c echo.Context) {
	c.SetCookie(sc.cookie("", time.Unix(0, 0)))
}

func (sc SessionCookies) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:        SessionCookieName,
		Value:       value,
		Path:        "/",
		Expires:     expires,
		HttpOnly:    true,
		Secure:      true,
		SameSite:    http.SameSiteNoneMode,
		Partitioned: true,
	}
}

// sessionID returns the session cookie value, or "" when absent.
func sessionID(c echo.Context) string {
	ck, err := c.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}
