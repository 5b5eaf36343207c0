package auth

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	repository "github.com/goliatone/go-repository-bun"
)

// UserTracker is a store we can use to retrieve and register users
type UserTracker interface {
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
}

// UserProvider handles users
type UserProvider struct {
	store        UserTracker
	logger       Logger
	passwordCost int
}

// MaxLoginAttempts is the maximun number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserTracker) *UserProvider {
	return &UserProvider{
		store:        store,
		logger:       defLogger{},
		passwordCost: DefaultPasswordCost,
	}
}

// WithLogger overrides the default logger.
func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// WithPasswordCost overrides the bcrypt cost used for new registrations.
func (u *UserProvider) WithPasswordCost(cost int) *UserProvider {
	u.passwordCost = cost
	return u
}

// VerifyIdentity will find the user, compare to the password, and return identity
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	if user.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			user.LoginAttempts = 0
		}
	}

	//if we have too many attempts in the given window, cool off!
	if user.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		// We have to increment the login_attempts counter and login_attempt_at
		if err2 := u.store.TrackAttemptedLogin(ctx, user); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}

		return nil, ErrMismatchedHashAndPassword
	}

	// reset the login_attempts counter and login_attempt_at
	if err := u.store.TrackSuccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login: %v", err)
	}

	return authIdentity{
		id:       user.ID.String(),
		email:    user.Email,
		username: user.Username,
	}, nil
}

// FindIdentityByIdentifier resolves an identifier to an Identity without a
// password check. The authentication gate uses it to reject tokens whose
// subject no longer exists.
func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	return authIdentity{
		email:    user.Email,
		id:       user.ID.String(),
		username: user.Username,
	}, nil
}

// RegisterUser creates a new account with a hashed password. Emails are
// unique: registering one that is already taken fails with ErrEmailTaken.
func (u *UserProvider) RegisterUser(ctx context.Context, msg RegisterUserMessage) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(msg.Email))
	if email == "" || msg.Password == "" {
		return nil, ErrNoEmptyString
	}

	existing, err := u.store.GetByIdentifier(ctx, email)
	if err != nil && !errors.IsNotFound(err) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to check for existing user")
	}

	if existing != nil {
		clone := ErrEmailTaken.Clone()
		return nil, clone.WithMetadata(map[string]any{"email": email})
	}

	hash, err := HashPasswordWithCost(msg.Password, u.passwordCost)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		FirstName:    msg.FirstName,
		LastName:     msg.LastName,
		Username:     getUsername(msg.Username, email),
		Email:        email,
		PasswordHash: hash,
	}

	if msg.UseHashid {
		if id, err := hashid.NewUUID(email); err == nil {
			user.ID = id
		}
	}

	created, err := u.store.Create(ctx, user)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConflict, "could not create user")
	}

	return created, nil
}

type authIdentity struct {
	id       string
	username string
	email    string
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Username() string {
	return a.username
}

func (a authIdentity) Email() string {
	return a.email
}

var _ Identity = authIdentity{}
var _ IdentityProvider = (*UserProvider)(nil)
var _ AccountRegistrerer = (*UserProvider)(nil)

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
