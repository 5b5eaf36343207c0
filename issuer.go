package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/SRIKANTHSK30/FinTrackr-Backend/tokenstore"
)

// TokenIssuer mints access/refresh pairs and keeps the refresh half
// registered in the token store so rotation and revocation have a single
// source of truth.
type TokenIssuer struct {
	tokens       TokenService
	store        tokenstore.Store
	refreshTTL   time.Duration
	storeTimeout time.Duration
	logger       Logger
}

// NewTokenIssuer wires a TokenService to a refresh-token store.
func NewTokenIssuer(tokens TokenService, store tokenstore.Store, cfg Config, logger Logger) *TokenIssuer {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenIssuer{
		tokens:       tokens,
		store:        store,
		refreshTTL:   cfg.GetRefreshTokenTTL(),
		storeTimeout: cfg.GetStoreTimeout(),
		logger:       logger,
	}
}

// Issue generates a fresh access/refresh pair for identity and records the
// refresh token as the identity's single live one, displacing any previous
// session.
func (i *TokenIssuer) Issue(ctx context.Context, identity Identity) (*TokenPair, error) {
	access, err := i.tokens.Generate(identity, TokenKindAccess)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign access token")
	}

	refresh, err := i.tokens.Generate(identity, TokenKindRefresh)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign refresh token")
	}

	sctx, cancel := i.storeContext(ctx)
	defer cancel()

	if err := i.store.Put(sctx, identity.ID(), refresh, i.refreshTTL); err != nil {
		i.logger.Error("token store put failed: %v", err)
		return nil, storeFailure(err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Rotate exchanges a live refresh token for a new pair. The presented
// token is checked against the store before the swap; a token that was
// already rotated or revoked fails with ErrInvalidRefresh and the caller
// must re-authenticate. No retries happen here: a failed rotation is a
// failed rotation.
func (i *TokenIssuer) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := i.tokens.Validate(refreshToken, TokenKindRefresh)
	if err != nil {
		return nil, invalidRefresh(err)
	}

	identity := claimsIdentity{claims: claims}

	access, err := i.tokens.Generate(identity, TokenKindAccess)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign access token")
	}

	next, err := i.tokens.Generate(identity, TokenKindRefresh)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign refresh token")
	}

	sctx, cancel := i.storeContext(ctx)
	defer cancel()

	err = i.store.Rotate(sctx, identity.ID(), refreshToken, next, i.refreshTTL)
	switch {
	case err == nil:
	case goerrors.Is(err, tokenstore.ErrTokenMismatch), goerrors.Is(err, tokenstore.ErrTokenNotFound):
		// Replay or revoked session. The signed-but-unregistered tokens
		// we just generated are discarded.
		return nil, invalidRefresh(err)
	default:
		i.logger.Error("token store rotate failed: %v", err)
		return nil, storeFailure(err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: next}, nil
}

// Revoke drops the subject's live refresh token. Already-revoked subjects
// are not an error.
func (i *TokenIssuer) Revoke(ctx context.Context, subject string) error {
	sctx, cancel := i.storeContext(ctx)
	defer cancel()

	if err := i.store.Revoke(sctx, subject); err != nil {
		i.logger.Error("token store revoke failed: %v", err)
		return storeFailure(err)
	}
	return nil
}

func (i *TokenIssuer) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if i.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, i.storeTimeout)
}

// claimsIdentity projects validated claims back into an Identity so a
// rotation can mint new tokens without a user lookup.
type claimsIdentity struct {
	claims AuthClaims
}

func (c claimsIdentity) ID() string       { return c.claims.Subject() }
func (c claimsIdentity) Username() string { return "" }
func (c claimsIdentity) Email() string    { return c.claims.Email() }

func invalidRefresh(err error) error {
	clone := ErrInvalidRefresh.Clone()
	clone.Source = err
	return clone
}

func storeFailure(err error) error {
	clone := ErrStoreUnavailable.Clone()
	clone.Source = err
	return clone
}
