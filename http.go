package auth

import (
	"context"
	"net/http"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	"github.com/SRIKANTHSK30/FinTrackr-Backend/middleware/jwtware"
)

// RouteAuthenticator adapts the Authenticator to HTTP middleware. It owns
// the protected-route gate and the translation of rich errors into JSON
// responses.
type RouteAuthenticator struct {
	auth         Authenticator
	tokens       TokenService
	provider     IdentityProvider
	cfg          Config
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, tokens TokenService, provider IdentityProvider, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:      cfg,
		auth:     auther,
		tokens:   tokens,
		provider: provider,
		Logger:   defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// ProtectedRoute gates a route group behind access-token validation. The
// token must carry the access kind; refresh tokens are rejected here no
// matter how fresh they are. When the subject no longer resolves to a
// known identity the request is rejected as well.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = a.ErrorHandler
	}
	return jwtware.New(jwtware.Config{
		ErrorHandler:     errorHandler,
		AuthScheme:       cfg.GetAuthScheme(),
		ContextKey:       cfg.GetContextKey(),
		TokenLookup:      cfg.GetTokenLookup(),
		TokenValidator:   accessValidator{tokens: a.tokens},
		IdentityResolver: a.resolveSubject,
		ContextEnricher:  ContextEnricherAdapter,
	})
}

// MakeClientRouteAuthErrorHandler normalizes gate failures. With optional
// set the request proceeds unauthenticated instead of failing.
func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else if err == jwtware.ErrUnknownSubject {
			richErr = ErrUnknownSubject
		} else if errors.Is(err, ErrStoreUnavailable) {
			errors.As(err, &richErr)
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding: %s", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

// resolveSubject tells the gate whether the token subject still exists.
// A missing account becomes ErrUnknownSubject; a store failure is an
// internal outage, not an authentication verdict.
func (a *RouteAuthenticator) resolveSubject(ctx context.Context, subject string) error {
	if a.provider == nil {
		return nil
	}

	_, err := a.provider.FindIdentityByIdentifier(ctx, subject)
	if err == nil {
		return nil
	}

	if errors.IsNotFound(err) {
		return jwtware.ErrUnknownSubject
	}

	clone := ErrStoreUnavailable.Clone()
	clone.Source = err
	return clone
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Middleware error handler: %s category=%s text_code=%s",
		richErr.Message,
		richErr.Category,
		richErr.TextCode,
	)

	return c.JSON(statusForError(richErr), errorBody(richErr))
}

// accessValidator narrows TokenService.Validate to the access kind so the
// middleware can stay unaware of token kinds.
type accessValidator struct {
	tokens TokenService
}

func (v accessValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.tokens.Validate(tokenString, TokenKindAccess)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// statusForError maps rich error categories onto HTTP status codes.
func statusForError(err *errors.Error) int {
	if err.Code >= 400 && err.Code <= 599 {
		return err.Code
	}

	switch err.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return http.StatusUnauthorized
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err *errors.Error) map[string]any {
	body := map[string]any{
		"message": err.Message,
	}
	if err.TextCode != "" {
		body["text_code"] = err.TextCode
	}
	return map[string]any{"error": body}
}
