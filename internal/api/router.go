package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/letwise/onboarding/docs"
	"github.com/letwise/onboarding/internal/api/handler"
	"github.com/letwise/onboarding/internal/api/middleware"
	"github.com/letwise/onboarding/internal/core/ports"
	"github.com/letwise/onboarding/internal/infrastructure/http/handlers"
)

// Dependencies is everything the router needs to build its handlers.
type Dependencies struct {
	Auth       ports.AuthService
	Tokens     ports.TokenService
	SessionTTL time.Duration
	// SiteURL is the only origin allowed to send credentials to /auth/*.
	SiteURL string
	Checks  []handlers.Check
	Log     zerolog.Logger
	// Registry receives the HTTP metrics; nil means the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(prometheusMiddleware(deps.Registry))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, "/auth/")
		},
		AllowOrigins:     []string{strings.TrimRight(deps.SiteURL, "/")},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	// --- Dependencies ---
	cookies := handler.NewSessionCookies(deps.SessionTTL)
	authHandler := handler.NewAuthHandler(deps.Auth, cookies, deps.Log)
	tokenHandler := handler.NewTokenHandler(deps.Tokens, cookies)
	meHandler := handler.NewMeHandler(deps.Auth)
	authMiddleware := middleware.Auth(deps.Tokens)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/signUp", authHandler.SignUp)
	auth.POST("/signIn", authHandler.SignIn)
	auth.POST("/signOut", authHandler.SignOut)
	auth.GET("/token", tokenHandler.Token)

	// --- Discovery ---
	e.GET("/.well-known/openid-configuration", tokenHandler.Discovery)
	e.GET("/.well-known/jwks.json", tokenHandler.JWKS)

	// --- Bearer-protected routes ---
	me := e.Group("/me", authMiddleware)
	me.GET("", meHandler.Me)
	me.GET("/role", meHandler.Role)
	me.GET("/profile", meHandler.Profile)

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Checks...)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	// --- Operations ---
	e.GET("/metrics", prometheusHandler(deps.Registry))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func prometheusMiddleware(reg *prometheus.Registry) echo.MiddlewareFunc {
	if reg == nil {
		return echoprometheus.NewMiddleware("onboarding")
	}
	return echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "onboarding",
		Registerer: reg,
	})
}

func prometheusHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			if role, ok := c.Get("role").(string); ok && role != "" {
				ev = ev.Str("role", role)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
