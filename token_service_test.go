package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T, cfg Config) TokenService {
	t.Helper()

	secrets, err := NewSecrets(cfg.GetAccessSigningKey(), cfg.GetRefreshSigningKey())
	require.NoError(t, err)

	return NewTokenService(secrets, cfg, nil)
}

func TestTokenServiceRoundTrip(t *testing.T) {
	cfg := newTestConfig()
	svc := newTestTokenService(t, cfg)

	identity := testIdentity{id: "user-1", username: "pepe", email: "pepe@example.com"}

	signed, err := svc.Generate(identity, TokenKindAccess)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := svc.Validate(signed, TokenKindAccess)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.Subject())
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "pepe@example.com", claims.Email())
	assert.Equal(t, TokenKindAccess, claims.Kind())
	assert.True(t, claims.Expires().After(time.Now()))
	assert.False(t, claims.IssuedAt().IsZero())
}

func TestTokenServiceRefreshRoundTrip(t *testing.T) {
	cfg := newTestConfig()
	svc := newTestTokenService(t, cfg)

	identity := testIdentity{id: "user-2", email: "rone@example.com"}

	signed, err := svc.Generate(identity, TokenKindRefresh)
	require.NoError(t, err)

	claims, err := svc.Validate(signed, TokenKindRefresh)
	require.NoError(t, err)

	assert.Equal(t, TokenKindRefresh, claims.Kind())
	// the refresh TTL is longer than the access TTL
	assert.True(t, claims.Expires().After(time.Now().Add(cfg.GetAccessTokenTTL())))
}

func TestTokenServiceRejectsCrossKindValidation(t *testing.T) {
	cfg := newTestConfig()
	svc := newTestTokenService(t, cfg)

	identity := testIdentity{id: "user-3"}

	access, err := svc.Generate(identity, TokenKindAccess)
	require.NoError(t, err)

	refresh, err := svc.Generate(identity, TokenKindRefresh)
	require.NoError(t, err)

	// each kind is signed with its own key, so the cross check fails at
	// the signature stage before the kind claim is even read
	_, err = svc.Validate(access, TokenKindRefresh)
	require.Error(t, err)
	assert.True(t, IsMalformedError(err), "expected malformed error, got: %v", err)

	_, err = svc.Validate(refresh, TokenKindAccess)
	require.Error(t, err)
	assert.True(t, IsMalformedError(err), "expected malformed error, got: %v", err)
}

func TestTokenServiceKindMismatchWithSharedKey(t *testing.T) {
	cfg := newTestConfig()
	svc := newTestTokenService(t, cfg)

	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.GetIssuer(),
			Subject:   "user-4",
			Audience:  jwt.ClaimStrings(cfg.GetAudience()),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		TokenType: string(TokenKindRefresh),
	}

	// sign a refresh-kind claim with the access key to force the kind
	// check itself to fire
	signed, err := svc.SignClaims(claims, TokenKindAccess)
	require.NoError(t, err)

	_, err = svc.Validate(signed, TokenKindAccess)
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, ErrWrongTokenKind), "expected wrong kind error, got: %v", err)
}

func TestTokenServiceExpiredToken(t *testing.T) {
	cfg := newTestConfig()
	cfg.leeway = 0
	svc := newTestTokenService(t, cfg)

	past := time.Now().Add(-2 * time.Hour)
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.GetIssuer(),
			Subject:   "user-5",
			Audience:  jwt.ClaimStrings(cfg.GetAudience()),
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Minute)),
		},
		TokenType: string(TokenKindAccess),
	}

	signed, err := svc.SignClaims(claims, TokenKindAccess)
	require.NoError(t, err)

	_, err = svc.Validate(signed, TokenKindAccess)
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, ErrTokenExpired), "expected expired error, got: %v", err)
	assert.True(t, IsTokenExpiredError(err))
}

func TestTokenServiceExpiryCheckedBeforeKind(t *testing.T) {
	cfg := newTestConfig()
	cfg.leeway = 0
	svc := newTestTokenService(t, cfg)

	past := time.Now().Add(-2 * time.Hour)
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.GetIssuer(),
			Subject:   "user-6",
			Audience:  jwt.ClaimStrings(cfg.GetAudience()),
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Minute)),
		},
		TokenType: string(TokenKindRefresh),
	}

	// expired AND wrong kind: expiry wins
	signed, err := svc.SignClaims(claims, TokenKindAccess)
	require.NoError(t, err)

	_, err = svc.Validate(signed, TokenKindAccess)
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, ErrTokenExpired), "expected expired error, got: %v", err)
}

func TestTokenServiceGarbageToken(t *testing.T) {
	cfg := newTestConfig()
	svc := newTestTokenService(t, cfg)

	for _, tokenString := range []string{
		"",
		"garbage",
		"not.a.jwt",
		"a.b",
	} {
		_, err := svc.Validate(tokenString, TokenKindAccess)
		require.Error(t, err, "token %q should not validate", tokenString)
		assert.True(t, IsMalformedError(err), "expected malformed error for %q, got: %v", tokenString, err)
	}
}

func TestTokenServiceTamperedToken(t *testing.T) {
	cfg := newTestConfig()
	svc := newTestTokenService(t, cfg)

	signed, err := svc.Generate(testIdentity{id: "user-7"}, TokenKindAccess)
	require.NoError(t, err)

	tampered := signed[:len(signed)-2] + "xx"

	_, err = svc.Validate(tampered, TokenKindAccess)
	require.Error(t, err)
	assert.True(t, IsMalformedError(err))
}

func TestTokenServiceRejectsWrongIssuer(t *testing.T) {
	cfg := newTestConfig()
	svc := newTestTokenService(t, cfg)

	other := newTestConfig()
	other.issuer = "someone-else"
	otherSvc := newTestTokenService(t, other)

	signed, err := otherSvc.Generate(testIdentity{id: "user-8"}, TokenKindAccess)
	require.NoError(t, err)

	_, err = svc.Validate(signed, TokenKindAccess)
	require.Error(t, err)
}

func TestTokenServiceGenerateRequiresIdentity(t *testing.T) {
	cfg := newTestConfig()
	svc := newTestTokenService(t, cfg)

	_, err := svc.Generate(nil, TokenKindAccess)
	require.Error(t, err)
}
