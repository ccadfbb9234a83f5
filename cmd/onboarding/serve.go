package main

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/letwise/onboarding/internal/api"
	"github.com/letwise/onboarding/internal/core/ports"
	"github.com/letwise/onboarding/internal/core/service"
	"github.com/letwise/onboarding/internal/infrastructure/config"
	mongodb "github.com/letwise/onboarding/internal/infrastructure/db/mongo"
	redisdb "github.com/letwise/onboarding/internal/infrastructure/db/redis"
	"github.com/letwise/onboarding/internal/infrastructure/http/handlers"
	"github.com/letwise/onboarding/internal/infrastructure/password"
	"github.com/letwise/onboarding/internal/infrastructure/queue"
	"github.com/letwise/onboarding/internal/infrastructure/token"
	"github.com/letwise/onboarding/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			log := logger.Init(logger.Options{
				Level:   cfg.LogLevel,
				Pretty:  cfg.IsDevelopment(),
				Service: "onboarding",
			})
			if err := serve(cmd.Context(), cfg, log); err != nil {
				log.Error().Err(err).Msg("server stopped with error")
				return err
			}
			return nil
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()
	log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")

	users := mongodb.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	key, err := signingKey(cfg, log)
	if err != nil {
		return err
	}
	signer, err := token.NewSigner(key, cfg.IssuerURL, cfg.Token.Audience)
	if err != nil {
		return err
	}
	log.Info().Str("kid", signer.KeyID()).Msg("token signing key loaded")

	checks := []handlers.Check{handlers.MongoCheck(db), handlers.RedisCheck(rdb)}

	var events ports.EventPublisher = queue.NopPublisher{}
	if cfg.AMQP.URL != "" {
		pub, err := queue.NewPublisher(queue.Config{URL: cfg.AMQP.URL, Exchange: cfg.AMQP.Exchange})
		if err != nil {
			return err
		}
		defer func() { _ = pub.Close() }()
		events = pub
		checks = append(checks, handlers.Check{Name: "rabbitmq", Ping: pub.Ping})
		log.Info().Str("exchange", cfg.AMQP.Exchange).Msg("publishing onboarding events")
	}

	authService := service.NewAuthService(
		users,
		redisdb.NewSessionStore(rdb),
		password.NewHasher(),
		cfg.Session.Duration,
		service.WithEventPublisher(events),
		service.WithLogger(log),
	)
	tokenService := service.NewTokenService(authService, users, signer, cfg.IssuerURL, cfg.Token.TTL)

	e := api.NewRouter(api.Dependencies{
		Auth:       authService,
		Tokens:     tokenService,
		SessionTTL: authService.SessionTTL(),
		SiteURL:    cfg.SiteURL,
		Checks:     checks,
		Log:        log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("server exited properly")
	return nil
}

// signingKey loads the configured RSA key. Development runs fall back to an
// ephemeral key; tokens it signs do not survive a restart.
func signingKey(cfg *config.Config, log zerolog.Logger) (*rsa.PrivateKey, error) {
	switch {
	case cfg.Token.PrivateKey != "":
		return token.LoadPrivateKey([]byte(cfg.Token.PrivateKey))
	case cfg.Token.PrivateKeyFile != "":
		return token.LoadPrivateKeyFile(cfg.Token.PrivateKeyFile)
	case cfg.IsDevelopment():
		log.Warn().Msg("no TOKEN_PRIVATE_KEY configured, generating an ephemeral signing key")
		return token.GenerateKey()
	}
	return nil, errors.New("TOKEN_PRIVATE_KEY or TOKEN_PRIVATE_KEY_FILE is required outside development")
}
