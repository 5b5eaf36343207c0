package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Username() string
	Email() string
}

// TokenPair is the dual credential returned by login, registration, and
// refresh: a short-lived access token and a longer-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthPayload is the result of an operation that authenticates a subject.
type AuthPayload struct {
	Identity Identity
	TokenPair
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Register(ctx context.Context, msg RegisterUserMessage) (*AuthPayload, error)
	Login(ctx context.Context, identifier, password string) (*AuthPayload, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, token string)
}

// Config holds auth options
type Config interface {
	GetAccessSigningKey() string
	GetRefreshSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetClockLeeway() time.Duration
	GetTokenLookup() string
	GetAuthScheme() string
	GetContextKey() string
	GetStoreStrategy() string
	GetStoreTimeout() time.Duration
	GetPasswordCost() int
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// AccountRegistrerer is the interface we need to handle new user registrations
type AccountRegistrerer interface {
	RegisterUser(ctx context.Context, msg RegisterUserMessage) (*User, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// audienceClaim converts a configured audience into jwt claim strings.
func audienceClaim(audience []string) jwt.ClaimStrings {
	if len(audience) == 0 {
		return nil
	}
	aud := make(jwt.ClaimStrings, len(audience))
	copy(aud, audience)
	return aud
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
