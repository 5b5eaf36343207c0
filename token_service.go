package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService encodes and decodes the signed token strings for both kinds.
type TokenService interface {
	Generate(identity Identity, kind TokenKind) (string, error)
	SignClaims(claims *JWTClaims, kind TokenKind) (string, error)
	Validate(tokenString string, kind TokenKind) (AuthClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	secrets    SecretManager
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	leeway     time.Duration
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(secrets SecretManager, cfg Config, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		secrets:    secrets,
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		issuer:     cfg.GetIssuer(),
		audience:   audienceClaim(cfg.GetAudience()),
		leeway:     cfg.GetClockLeeway(),
		logger:     logger,
	}
}

// Generate creates a signed token of the given kind for the identity.
// Expiry is embedded in the claims; validation enforces it, not the caller.
func (ts *TokenServiceImpl) Generate(identity Identity, kind TokenKind) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttlFor(kind))),
		},
		UID:       identity.ID(),
		UserEmail: identity.Email(),
		TokenType: string(kind),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims, kind)
}

// SignClaims signs arbitrary JWT claims using the key for the given kind.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims, kind TokenKind) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}
	if !kind.Valid() {
		return "", errors.New("unknown token kind", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.secrets.KeyFor(kind))
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string against the expected kind.
// Checks run in a fixed order: signature, then expiry, then kind, so the
// failure surface leaks nothing about which claim was wrong first.
func (ts *TokenServiceImpl) Validate(tokenString string, kind TokenKind) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 3)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}
	if ts.leeway > 0 {
		parserOptions = append(parserOptions, jwt.WithLeeway(ts.leeway))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.secrets.KeyFor(kind), nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return nil, ErrTokenMalformed
	}

	if claims.Kind() != kind {
		ts.logger.Error("TokenService validate kind mismatch: want %s got %s", kind, claims.Kind())
		return nil, ErrWrongTokenKind
	}

	return claims, nil
}

func (ts *TokenServiceImpl) ttlFor(kind TokenKind) time.Duration {
	if kind == TokenKindRefresh {
		return ts.refreshTTL
	}
	return ts.accessTTL
}
