package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients in error payloads.
const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeInvalidRefresh     = "INVALID_REFRESH"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeWrongTokenKind     = "WRONG_TOKEN_KIND"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeUnknownSubject     = "UNKNOWN_SUBJECT"
	TextCodeTooManyAttempts    = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeStoreUnavailable   = "STORE_UNAVAILABLE"
)

// ErrInvalidCredentials is the generic login failure. It deliberately covers
// both an unknown identifier and a wrong password so the API cannot be used
// to enumerate accounts.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredentials)

// ErrInvalidRefresh is returned when a refresh token cannot be exchanged:
// bad signature, expired, revoked, or superseded by a newer rotation. The
// caller must re-authenticate.
var ErrInvalidRefresh = goerrors.New("invalid refresh token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidRefresh)

// ErrTokenExpired is returned for tokens with a valid signature past their
// expiry.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed covers tokens that fail signature or structural checks.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrWrongTokenKind is returned when a structurally valid token carries the
// wrong kind claim, e.g. an access token presented to the refresh endpoint.
var ErrWrongTokenKind = goerrors.New("token kind mismatch", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeWrongTokenKind)

// ErrEmailTaken is returned by registration when the email is already in use.
var ErrEmailTaken = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken)

// ErrUnknownSubject is returned by the authentication gate when a token is
// cryptographically valid but its subject no longer exists in the identity
// store.
var ErrUnknownSubject = goerrors.New("unknown token subject", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeUnknownSubject)

// ErrTooManyLoginAttempts is surfaced while the cooldown window is active.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTooManyAttempts)

// ErrStoreUnavailable wraps token store or identity store outages. It is an
// internal failure, never an authentication failure: the request dies, the
// process does not.
var ErrStoreUnavailable = goerrors.New("backing store unavailable", goerrors.CategoryInternal).
	WithCode(goerrors.CodeInternal).
	WithTextCode(TextCodeStoreUnavailable)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode("IDENTITY_NOT_FOUND")

// ErrNoEmptyString rejects empty secrets and passwords.
var ErrNoEmptyString = goerrors.New("value must not be an empty string", goerrors.CategoryBadInput)

// ErrMismatchedHashAndPassword is the internal password comparison failure.
// It never crosses the API boundary; the authenticator folds it into
// ErrInvalidCredentials.
var ErrMismatchedHashAndPassword = goerrors.New("mismatched hash and password", goerrors.CategoryAuth)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
