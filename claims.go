package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind discriminates between the two bearer credentials the service
// issues. Each kind is signed with its own secret, so a token of one kind
// can never verify as the other even if a caller forgets the kind check.
type TokenKind string

const (
	// TokenKindAccess is the short-lived credential attached to requests.
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh is the longer-lived credential exchanged for a new
	// token pair. Subject to rotation and revocation.
	TokenKindRefresh TokenKind = "refresh"
)

// Valid reports whether the kind is one of the two supported values.
func (k TokenKind) Valid() bool {
	return k == TokenKindAccess || k == TokenKindRefresh
}

// AuthClaims represents the decoded payload of a signed token.
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Kind() TokenKind
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID       string `json:"uid,omitempty"`
	UserEmail string `json:"email,omitempty"`
	TokenType string `json:"kind,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Email returns the email claim
func (c *JWTClaims) Email() string {
	return c.UserEmail
}

// Kind returns the token kind claim
func (c *JWTClaims) Kind() TokenKind {
	return TokenKind(c.TokenType)
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ensureTokenID assigns a random token id when the claims carry none.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
