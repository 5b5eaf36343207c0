package auth

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserTracker struct {
	users           map[string]*User
	attemptedCalls  int
	successfulCalls int
	getErr          error
	trackAttemptErr error
	createErr       error
	lastCreatedUser *User
}

func newStubUserTracker(users ...*User) *stubUserTracker {
	s := &stubUserTracker{users: map[string]*User{}}
	for _, u := range users {
		s.users[u.Email] = u
	}
	return s
}

func (s *stubUserTracker) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	user, ok := s.users[identifier]
	if !ok {
		return nil, goerrors.New("record not found", goerrors.CategoryNotFound)
	}
	return user, nil
}

func (s *stubUserTracker) TrackAttemptedLogin(ctx context.Context, user *User) error {
	if s.trackAttemptErr != nil {
		return s.trackAttemptErr
	}
	s.attemptedCalls++
	user.LoginAttempts++
	now := time.Now()
	user.LoginAttemptAt = &now
	return nil
}

func (s *stubUserTracker) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	s.successfulCalls++
	user.LoginAttempts = 0
	user.LoginAttemptAt = nil
	return nil
}

func (s *stubUserTracker) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	s.users[record.Email] = record
	s.lastCreatedUser = record
	return record, nil
}

func makeVerifiableUser(t *testing.T, email, password string) *User {
	t.Helper()

	hash, err := HashPasswordWithCost(password, 4)
	require.NoError(t, err)

	return &User{
		ID:           uuid.New(),
		Username:     "pepe",
		Email:        email,
		PasswordHash: hash,
	}
}

func TestVerifyIdentitySuccess(t *testing.T) {
	user := makeVerifiableUser(t, "pepe@example.com", "valid-password")
	store := newStubUserTracker(user)
	provider := NewUserProvider(store)

	identity, err := provider.VerifyIdentity(context.Background(), "pepe@example.com", "valid-password")
	require.NoError(t, err)

	assert.Equal(t, user.ID.String(), identity.ID())
	assert.Equal(t, "pepe@example.com", identity.Email())
	assert.Equal(t, "pepe", identity.Username())
	assert.Equal(t, 1, store.successfulCalls)
}

func TestVerifyIdentityWrongPasswordTracksAttempt(t *testing.T) {
	user := makeVerifiableUser(t, "pepe@example.com", "valid-password")
	store := newStubUserTracker(user)
	provider := NewUserProvider(store)

	_, err := provider.VerifyIdentity(context.Background(), "pepe@example.com", "wrong-password")
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, ErrMismatchedHashAndPassword))
	assert.Equal(t, 1, store.attemptedCalls)
	assert.Equal(t, 1, user.LoginAttempts)
}

func TestVerifyIdentityUnknownUserSameError(t *testing.T) {
	store := newStubUserTracker()
	provider := NewUserProvider(store)

	_, err := provider.VerifyIdentity(context.Background(), "ghost@example.com", "whatever")
	require.Error(t, err)
	// unknown accounts fail exactly like a bad password
	assert.True(t, goerrors.Is(err, ErrMismatchedHashAndPassword))
}

func TestVerifyIdentityStoreOutageIsInternal(t *testing.T) {
	store := newStubUserTracker()
	store.getErr = goerrors.New("connection refused", goerrors.CategoryInternal)
	provider := NewUserProvider(store)

	_, err := provider.VerifyIdentity(context.Background(), "pepe@example.com", "valid-password")
	require.Error(t, err)
	assert.False(t, goerrors.Is(err, ErrMismatchedHashAndPassword))

	var rich *goerrors.Error
	require.True(t, goerrors.As(err, &rich))
	assert.Equal(t, goerrors.CategoryInternal, rich.Category)
}

func TestVerifyIdentityCooldown(t *testing.T) {
	user := makeVerifiableUser(t, "pepe@example.com", "valid-password")
	now := time.Now()
	user.LoginAttempts = MaxLoginAttempts + 1
	user.LoginAttemptAt = &now

	store := newStubUserTracker(user)
	provider := NewUserProvider(store)

	// even the correct password is rejected while cooling down
	_, err := provider.VerifyIdentity(context.Background(), "pepe@example.com", "valid-password")
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, ErrTooManyLoginAttempts))
}

func TestVerifyIdentityCooldownExpires(t *testing.T) {
	user := makeVerifiableUser(t, "pepe@example.com", "valid-password")
	stale := time.Now().Add(-48 * time.Hour)
	user.LoginAttempts = MaxLoginAttempts + 1
	user.LoginAttemptAt = &stale

	store := newStubUserTracker(user)
	provider := NewUserProvider(store)

	identity, err := provider.VerifyIdentity(context.Background(), "pepe@example.com", "valid-password")
	require.NoError(t, err)
	assert.NotNil(t, identity)
}

func TestFindIdentityByIdentifier(t *testing.T) {
	user := makeVerifiableUser(t, "pepe@example.com", "valid-password")
	store := newStubUserTracker(user)
	provider := NewUserProvider(store)

	identity, err := provider.FindIdentityByIdentifier(context.Background(), "pepe@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), identity.ID())

	_, err = provider.FindIdentityByIdentifier(context.Background(), "ghost@example.com")
	require.Error(t, err)
}

func TestRegisterUser(t *testing.T) {
	store := newStubUserTracker()
	provider := NewUserProvider(store).WithPasswordCost(4)

	created, err := provider.RegisterUser(context.Background(), RegisterUserMessage{
		FirstName: "Pepe",
		Email:     "  PEPE@Example.COM ",
		Password:  "sup3r-secret-pw",
	})
	require.NoError(t, err)

	assert.Equal(t, "pepe@example.com", created.Email)
	assert.Equal(t, "pepe", created.Username)
	assert.NotEqual(t, "sup3r-secret-pw", created.PasswordHash)
	assert.NoError(t, ComparePasswordAndHash("sup3r-secret-pw", created.PasswordHash))
}

func TestRegisterUserEmailTaken(t *testing.T) {
	user := makeVerifiableUser(t, "pepe@example.com", "valid-password")
	store := newStubUserTracker(user)
	provider := NewUserProvider(store).WithPasswordCost(4)

	_, err := provider.RegisterUser(context.Background(), RegisterUserMessage{
		Email:    "pepe@example.com",
		Password: "sup3r-secret-pw",
	})
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, ErrEmailTaken))
}

func TestRegisterUserRejectsEmptyValues(t *testing.T) {
	store := newStubUserTracker()
	provider := NewUserProvider(store).WithPasswordCost(4)

	_, err := provider.RegisterUser(context.Background(), RegisterUserMessage{Email: "", Password: "pw"})
	assert.True(t, goerrors.Is(err, ErrNoEmptyString))

	_, err = provider.RegisterUser(context.Background(), RegisterUserMessage{Email: "a@b.com", Password: ""})
	assert.True(t, goerrors.Is(err, ErrNoEmptyString))
}

func TestRegisterUserExplicitUsernameWins(t *testing.T) {
	store := newStubUserTracker()
	provider := NewUserProvider(store).WithPasswordCost(4)

	created, err := provider.RegisterUser(context.Background(), RegisterUserMessage{
		Username: "el-pepe",
		Email:    "pepe@example.com",
		Password: "sup3r-secret-pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "el-pepe", created.Username)
}
