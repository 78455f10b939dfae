package config

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/sethvargo/go-envconfig"
)

// Config carries everything the server needs at boot. Values come from the
// environment; defaults cover local development except for the session
// signing secret, which has to be provided.
type Config struct {
	App         App         `env:", prefix=APP_"`
	Auth        Auth        `env:", prefix=AUTH_"`
	Persistence Persistence `env:", prefix=DB_"`
}

type App struct {
	Name        string `env:"NAME, default=motors"`
	Environment string `env:"ENV, default=development"`
	Address     string `env:"ADDRESS, default=:8080"`
}

type Auth struct {
	SigningKey           string   `env:"SIGNING_KEY"`
	LegacyKeys           []string `env:"LEGACY_KEYS"`
	SigningMethod        string   `env:"SIGNING_METHOD, default=HS256"`
	ContextKey           string   `env:"CONTEXT_KEY, default=session"`
	TokenExpiration      int      `env:"TOKEN_EXPIRATION, default=3600"`
	Issuer               string   `env:"ISSUER, default=motors"`
	Audience             string   `env:"AUDIENCE, default=motors-web"`
	RejectedRouteKey     string   `env:"REJECTED_ROUTE_KEY, default=rejected_route"`
	RejectedRouteDefault string   `env:"REJECTED_ROUTE_DEFAULT, default=/"`
	LoginRoute           string   `env:"LOGIN_ROUTE, default=/login"`
}

type Persistence struct {
	DSN                   string `env:"DSN, default=file:motors.db?cache=shared&mode=rwc"`
	PingTimeoutExpression string `env:"PING_TIMEOUT, default=5s"`
}

// Load reads the environment into a Config. It does not validate; call
// Validate before using the result.
func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "unable to process environment config")
	}
	return cfg, nil
}

// Validate fails the process at startup when the signing secret is absent.
func (c *Config) Validate() error {
	if c.Auth.SigningKey == "" {
		return errors.New("AUTH_SIGNING_KEY is required", errors.CategoryValidation).
			WithTextCode("MISSING_SIGNING_KEY")
	}
	if c.Auth.TokenExpiration <= 0 {
		return errors.New("AUTH_TOKEN_EXPIRATION must be positive", errors.CategoryValidation).
			WithTextCode("INVALID_TOKEN_EXPIRATION")
	}
	return nil
}

func (c *Config) GetApp() App                 { return c.App }
func (c *Config) GetAuth() Auth               { return c.Auth }
func (c *Config) GetPersistence() Persistence { return c.Persistence }

func (c *Config) GetSigningKey() string    { return c.Auth.SigningKey }
func (c *Config) GetLegacyKeys() []string  { return c.Auth.LegacyKeys }
func (c *Config) GetSigningMethod() string { return c.Auth.SigningMethod }
func (c *Config) GetContextKey() string    { return c.Auth.ContextKey }

// GetTokenExpiration is the session lifetime in seconds.
func (c *Config) GetTokenExpiration() int { return c.Auth.TokenExpiration }

func (c *Config) GetIssuer() string               { return c.Auth.Issuer }
func (c *Config) GetAudience() []string           { return []string{c.Auth.Audience} }
func (c *Config) GetRejectedRouteKey() string     { return c.Auth.RejectedRouteKey }
func (c *Config) GetRejectedRouteDefault() string { return c.Auth.RejectedRouteDefault }
func (c *Config) GetLoginRoute() string           { return c.Auth.LoginRoute }

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (a App) GetName() string    { return a.Name }
func (a App) GetAddress() string { return a.Address }

func (p Persistence) GetDSN() string { return p.DSN }

func (p Persistence) GetPingTimeout() time.Duration {
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}
