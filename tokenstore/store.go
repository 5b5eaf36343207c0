// Package tokenstore persists, validates, rotates, and revokes refresh
// tokens. Three interchangeable strategies implement the same contract:
// a durable bun-backed table, an expiring redis cache, and a stateless
// no-op with reduced guarantees. The strategy is selected by configuration
// at startup, never at call sites.
package tokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

// ErrTokenNotFound is returned when the subject has no live refresh token.
var ErrTokenNotFound = errors.New("refresh token not found")

// ErrTokenMismatch is returned when the presented token is not the
// subject's currently live token: it was rotated away, revoked, or never
// issued. Callers treat this as a replay and force re-authentication.
var ErrTokenMismatch = errors.New("refresh token mismatch")

// ErrUnavailable wraps backend outages so callers can tell an outage from
// an authentication failure.
var ErrUnavailable = errors.New("token store unavailable")

// Store is the refresh-token store contract. Implementations own the full
// lifetime of refresh records and must keep at most one live token per
// subject.
type Store interface {
	// Put records token as the subject's single live refresh token,
	// replacing any previous one.
	Put(ctx context.Context, subject, token string, ttl time.Duration) error

	// Validate reports whether token is the subject's live token. It is
	// read-only and safe to call repeatedly.
	Validate(ctx context.Context, subject, token string) error

	// Rotate atomically replaces oldToken with newToken. If oldToken is
	// not the live token the rotation fails with ErrTokenMismatch and no
	// state changes; concurrent rotations for one subject serialize so
	// that at most one wins.
	Rotate(ctx context.Context, subject, oldToken, newToken string, ttl time.Duration) error

	// Revoke drops the subject's live token. Idempotent.
	Revoke(ctx context.Context, subject string) error
}

// Strategy names accepted by New.
const (
	StrategyDurable   = "durable"
	StrategyCache     = "cache"
	StrategyStateless = "none"
)

// Options configures strategy selection.
type Options struct {
	Strategy string

	// DB backs the durable strategy.
	DB *bun.DB

	// Redis backs the cache strategy.
	Redis *redis.Client

	// KeyPrefix namespaces cache keys. Defaults to "refresh:".
	KeyPrefix string
}

// New selects a Store implementation from the configured strategy.
func New(opts Options) (Store, error) {
	switch opts.Strategy {
	case StrategyDurable, "":
		if opts.DB == nil {
			return nil, errors.New("tokenstore: durable strategy requires a database handle")
		}
		return NewBunStore(opts.DB), nil
	case StrategyCache:
		if opts.Redis == nil {
			return nil, errors.New("tokenstore: cache strategy requires a redis client")
		}
		return NewRedisStore(opts.Redis, opts.KeyPrefix), nil
	case StrategyStateless:
		return NewStateless(), nil
	default:
		return nil, errors.New("tokenstore: unknown strategy " + opts.Strategy)
	}
}
