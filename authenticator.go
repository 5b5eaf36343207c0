package auth

import (
	"context"
	"reflect"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Auther implements the Authenticator contract: registration, password
// login, refresh rotation, and logout. All credential failures fold into
// ErrInvalidCredentials so callers cannot distinguish an unknown account
// from a wrong password.
type Auther struct {
	provider     IdentityProvider
	registry     AccountRegistrerer
	issuer       *TokenIssuer
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, registry AccountRegistrerer, issuer *TokenIssuer) *Auther {
	return &Auther{
		provider:     provider,
		registry:     registry,
		issuer:       issuer,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// Issuer returns the TokenIssuer used by this Authenticator
func (s *Auther) Issuer() *TokenIssuer {
	return s.issuer
}

// Register creates a new account and immediately establishes a session
// for it, returning the identity and its first token pair.
func (s *Auther) Register(ctx context.Context, msg RegisterUserMessage) (*AuthPayload, error) {
	user, err := s.registry.RegisterUser(ctx, msg)
	if err != nil {
		s.logger.Error("Register create user error: %v", err)
		return nil, err
	}

	identity := NewIdentityFromUser(user)

	pair, err := s.issuer.Issue(ctx, identity)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventRegistration, identity.ID(), map[string]any{
		"email": identity.Email(),
	})

	return &AuthPayload{Identity: identity, TokenPair: *pair}, nil
}

// Login verifies the identifier/password pair and issues a fresh token
// pair, displacing any previous session for the subject.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*AuthPayload, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error: %v", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, loginError(err)
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", map[string]any{
			"identifier": identifier,
			"error":      ErrIdentityNotFound.Error(),
		})
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuer.Issue(ctx, identity)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return &AuthPayload{Identity: identity, TokenPair: *pair}, nil
}

// Refresh exchanges a live refresh token for a new pair. A token that was
// already rotated, revoked, or expired fails with ErrInvalidRefresh; the
// failed exchange is never retried here.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	pair, err := s.issuer.Rotate(ctx, refreshToken)
	if err != nil {
		s.logger.Warn("Refresh rotation rejected: %v", err)
		s.emitAuthEvent(ctx, ActivityEventTokenRefreshFailure, "", map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventTokenRefresh, "", nil)

	return pair, nil
}

// Logout revokes the subject's live refresh token. It accepts either half
// of the pair and is best effort: an unknown or expired token ends the
// call quietly, since the session it names is already unusable.
func (s *Auther) Logout(ctx context.Context, token string) {
	claims, err := s.issuer.tokens.Validate(token, TokenKindRefresh)
	if err != nil {
		claims, err = s.issuer.tokens.Validate(token, TokenKindAccess)
	}
	if err != nil {
		s.logger.Debug("Logout token not usable: %v", err)
		return
	}

	subject := claims.Subject()
	if subject == "" {
		return
	}

	if err := s.issuer.Revoke(ctx, subject); err != nil {
		s.logger.Warn("Logout revoke failed: %v", err)
		return
	}

	s.emitAuthEvent(ctx, ActivityEventLogout, subject, nil)
}

var _ Authenticator = (*Auther)(nil)

// loginError folds credential mismatches into the generic login failure
// while letting cooldown and infrastructure errors through unchanged.
func loginError(err error) error {
	if goerrors.Is(err, ErrTooManyLoginAttempts) {
		return err
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Category == goerrors.CategoryInternal {
		return err
	}

	clone := ErrInvalidCredentials.Clone()
	clone.Source = err
	return clone
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}
