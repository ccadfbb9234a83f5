package config

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// SiteURL is the single browser origin allowed to call the auth endpoints with credentials.
	SiteURL string `env:"SITE_URL,   default=http://localhost:3000"`
	// IssuerURL is the public base URL of this service, used as token issuer and in discovery.
	IssuerURL string `env:"ISSUER_URL, default=http://localhost:8080"`

	Session SessionConfig
	Token   TokenConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	AMQP    AMQPConfig
}

type SessionConfig struct {
	Duration time.Duration `env:"SESSION_DURATION, default=720h"`
}

type TokenConfig struct {
	// PrivateKey holds a PEM encoded RSA key; PrivateKeyFile is read when it is empty.
	PrivateKey     string        `env:"TOKEN_PRIVATE_KEY"`
	PrivateKeyFile string        `env:"TOKEN_PRIVATE_KEY_FILE"`
	TTL            time.Duration `env:"TOKEN_TTL,      default=1h"`
	Audience       string        `env:"TOKEN_AUDIENCE, default=onboarding"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=onboarding"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type AMQPConfig struct {
	URL      string `env:"AMQP_URL"`
	Exchange string `env:"AMQP_EXCHANGE, default=onboarding.events"`
}

// IsDevelopment reports whether the service runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev" || c.Env == "local"
}

// Load reads a .env file when present, then configuration from environment variables.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()
	return loadWith(ctx, envconfig.OsLookuper())
}

func loadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if cfg.Session.Duration <= 0 {
		return nil, fmt.Errorf("config: SESSION_DURATION must be positive")
	}
	if cfg.Token.TTL <= 0 {
		return nil, fmt.Errorf("config: TOKEN_TTL must be positive")
	}
	return &cfg, nil
}
