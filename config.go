package auth

import (
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/SRIKANTHSK30/FinTrackr-Backend/tokenstore"
)

// Token store strategies. See the tokenstore package for semantics; the
// stateless strategy cannot revoke and is a deliberately weaker option.
const (
	StoreStrategyDurable   = "durable"
	StoreStrategyCache     = "cache"
	StoreStrategyStateless = "none"
)

// EnvConfig is the environment backed Config implementation.
type EnvConfig struct {
	AccessSigningKey  string        `env:"AUTH_ACCESS_SIGNING_KEY,required"`
	RefreshSigningKey string        `env:"AUTH_REFRESH_SIGNING_KEY,required"`
	AccessTokenTTL    time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL   time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" envDefault:"168h"`
	Issuer            string        `env:"AUTH_ISSUER" envDefault:"fintrackr"`
	Audience          []string      `env:"AUTH_AUDIENCE" envSeparator:","`
	ClockLeeway       time.Duration `env:"AUTH_CLOCK_LEEWAY" envDefault:"30s"`
	TokenLookup       string        `env:"AUTH_TOKEN_LOOKUP" envDefault:"header:Authorization"`
	AuthScheme        string        `env:"AUTH_SCHEME" envDefault:"Bearer"`
	ContextKey        string        `env:"AUTH_CONTEXT_KEY" envDefault:"user"`
	StoreStrategy     string        `env:"AUTH_TOKEN_STORE" envDefault:"durable"`
	StoreTimeout      time.Duration `env:"AUTH_STORE_TIMEOUT" envDefault:"5s"`
	PasswordCost      int           `env:"AUTH_PASSWORD_COST" envDefault:"14"`
	RedisAddr         string        `env:"AUTH_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword     string        `env:"AUTH_REDIS_PASSWORD"`
	RedisDB           int           `env:"AUTH_REDIS_DB" envDefault:"0"`
}

var _ Config = (*EnvConfig)(nil)

// LoadConfig reads configuration from the environment.
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse auth configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks invariants the env tags cannot express.
func (c *EnvConfig) Validate() error {
	if c.AccessSigningKey == c.RefreshSigningKey {
		return goerrors.New("access and refresh signing keys must differ", goerrors.CategoryBadInput).
			WithTextCode("SHARED_SIGNING_KEY")
	}

	switch c.StoreStrategy {
	case StoreStrategyDurable, StoreStrategyCache, StoreStrategyStateless:
	default:
		return goerrors.New("unknown token store strategy", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"strategy": c.StoreStrategy})
	}

	return nil
}

func (c *EnvConfig) GetAccessSigningKey() string      { return c.AccessSigningKey }
func (c *EnvConfig) GetRefreshSigningKey() string     { return c.RefreshSigningKey }
func (c *EnvConfig) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }
func (c *EnvConfig) GetRefreshTokenTTL() time.Duration {
	return c.RefreshTokenTTL
}
func (c *EnvConfig) GetIssuer() string               { return c.Issuer }
func (c *EnvConfig) GetAudience() []string           { return c.Audience }
func (c *EnvConfig) GetClockLeeway() time.Duration   { return c.ClockLeeway }
func (c *EnvConfig) GetTokenLookup() string          { return c.TokenLookup }
func (c *EnvConfig) GetAuthScheme() string           { return c.AuthScheme }
func (c *EnvConfig) GetContextKey() string           { return c.ContextKey }
func (c *EnvConfig) GetStoreStrategy() string        { return c.StoreStrategy }
func (c *EnvConfig) GetStoreTimeout() time.Duration  { return c.StoreTimeout }
func (c *EnvConfig) GetPasswordCost() int            { return c.PasswordCost }
func (c *EnvConfig) GetRedisAddr() string            { return c.RedisAddr }
func (c *EnvConfig) GetRedisPassword() string        { return c.RedisPassword }
func (c *EnvConfig) GetRedisDB() int                 { return c.RedisDB }

// NewTokenStoreFromConfig builds the refresh-token store the configured
// strategy calls for. The durable strategy persists through the caller's
// bun handle, the cache strategy dials redis from config, and the
// stateless strategy needs neither.
func NewTokenStoreFromConfig(cfg Config, db *bun.DB) (tokenstore.Store, error) {
	switch cfg.GetStoreStrategy() {
	case StoreStrategyCache:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		})
		return tokenstore.New(tokenstore.Options{
			Strategy: tokenstore.StrategyCache,
			Redis:    client,
		})
	case StoreStrategyStateless:
		return tokenstore.New(tokenstore.Options{
			Strategy: tokenstore.StrategyStateless,
		})
	default:
		return tokenstore.New(tokenstore.Options{
			Strategy: tokenstore.StrategyDurable,
			DB:       db,
		})
	}
}
