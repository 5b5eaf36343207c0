package social

import "github.com/goliatone/go-errors"

const (
	TextCodeNoVerifiedEmail = "social_no_verified_email"
	TextCodeUserInfoFail    = "social_user_info_failed"
	TextCodeLinkFailed      = "social_link_failed"
)

// ErrNoVerifiedEmail is returned when a provider assertion carries no
// usable verified email. Linking cannot proceed without one; there is no
// local recovery.
var ErrNoVerifiedEmail = errors.New("assertion carries no verified email", errors.CategoryAuth).
	WithTextCode(TextCodeNoVerifiedEmail).
	WithCode(errors.CodeForbidden)

// ErrUserInfoFailed is returned when the assertion payload is unusable.
var ErrUserInfoFailed = errors.New("failed to read identity assertion", errors.CategoryAuth).
	WithTextCode(TextCodeUserInfoFail).
	WithCode(errors.CodeUnauthorized)

// ErrLinkFailed wraps storage failures during linking.
var ErrLinkFailed = errors.New("failed to link external identity", errors.CategoryInternal).
	WithTextCode(TextCodeLinkFailed).
	WithCode(errors.CodeInternal)
