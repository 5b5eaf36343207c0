package social

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goliatone/go-repository-bun"

	auth "github.com/SRIKANTHSK30/FinTrackr-Backend"
)

// LinkingResult contains the resolved user and metadata.
type LinkingResult struct {
	User      *auth.User
	IsNewUser bool
	Linked    bool
}

// Linker reconciles provider assertions with local accounts. The provider
// id is the stable key: once linked, a subject keeps resolving to the same
// account no matter how its provider-side email changes. Email matching
// only happens the first time a provider id is seen, and only against a
// verified email.
type Linker struct {
	AccountRepo SocialAccountRepository
	UserRepo    auth.Users

	OnUserCreated   func(ctx context.Context, user *auth.User, assertion Assertion) error
	OnAccountLinked func(ctx context.Context, user *auth.User, assertion Assertion) error
}

// NewLinker creates a Linker over the given stores.
func NewLinker(accounts SocialAccountRepository, users auth.Users) *Linker {
	return &Linker{
		AccountRepo: accounts,
		UserRepo:    users,
	}
}

// Resolve maps an assertion to a local user: provider-id lookup first,
// then verified-email merge, then creation of a password-less account.
func (l *Linker) Resolve(ctx context.Context, assertion Assertion) (*LinkingResult, error) {
	if !assertion.Valid() {
		return nil, ErrUserInfoFailed
	}
	if l.AccountRepo == nil || l.UserRepo == nil {
		return nil, ErrLinkFailed
	}

	existing, err := l.AccountRepo.FindByProviderID(ctx, assertion.Provider, assertion.ProviderUserID)
	if err == nil && existing != nil {
		user, err := l.UserRepo.GetByIdentifier(ctx, existing.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to find linked user: %w", err)
		}
		return &LinkingResult{User: user, IsNewUser: false}, nil
	}
	if err != nil && !repository.IsRecordNotFound(err) && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find linked account: %w", err)
	}

	email := assertion.VerifiedEmail()
	if email == "" {
		return nil, ErrNoVerifiedEmail
	}
	email = strings.ToLower(email)

	user, err := l.UserRepo.GetByIdentifier(ctx, email)
	if err != nil && !repository.IsRecordNotFound(err) && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if err != nil {
		user = nil
	}

	if user != nil {
		// Account merge: attach the external identity to the existing
		// local account.
		if err := l.link(ctx, user, assertion); err != nil {
			return nil, err
		}

		if l.OnAccountLinked != nil {
			if err := l.OnAccountLinked(ctx, user, assertion); err != nil {
				return nil, err
			}
		}

		return &LinkingResult{User: user, IsNewUser: false, Linked: true}, nil
	}

	created, err := l.UserRepo.Create(ctx, l.userFromAssertion(assertion, email))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := l.link(ctx, created, assertion); err != nil {
		return nil, err
	}

	if l.OnUserCreated != nil {
		if err := l.OnUserCreated(ctx, created, assertion); err != nil {
			return nil, err
		}
	}

	return &LinkingResult{User: created, IsNewUser: true, Linked: true}, nil
}

func (l *Linker) link(ctx context.Context, user *auth.User, assertion Assertion) error {
	account := &SocialAccount{
		UserID:         user.ID.String(),
		Provider:       assertion.Provider,
		ProviderUserID: assertion.ProviderUserID,
		Email:          assertion.Email,
		Name:           assertion.Name,
		Username:       assertion.Username,
		AvatarURL:      assertion.AvatarURL,
	}

	if err := l.AccountRepo.Upsert(ctx, account); err != nil {
		clone := ErrLinkFailed.Clone()
		clone.Source = err
		return clone
	}
	return nil
}

// userFromAssertion builds a password-less account. With no hash stored,
// password login can never succeed for it; the provider assertion is its
// only credential.
func (l *Linker) userFromAssertion(assertion Assertion, email string) *auth.User {
	user := &auth.User{
		Email:          email,
		EmailValidated: true,
		Metadata: map[string]any{
			"social_provider": assertion.Provider,
			"avatar_url":      assertion.AvatarURL,
		},
	}

	if assertion.Name != "" {
		parts := strings.SplitN(assertion.Name, " ", 2)
		user.FirstName = parts[0]
		if len(parts) > 1 {
			user.LastName = parts[1]
		}
	}

	if assertion.Username != "" {
		user.Username = assertion.Username
	} else if email != "" {
		user.Username = strings.Split(email, "@")[0]
	} else {
		user.Username = fmt.Sprintf("%s_%s", assertion.Provider, assertion.ProviderUserID)
	}

	return user
}
