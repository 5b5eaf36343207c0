package auth

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/SRIKANTHSK30/FinTrackr-Backend/tokenstore"
)

// integrationEnv wires the real repositories, provider, issuer, and
// authenticator against sqlite and miniredis.
type integrationEnv struct {
	repo   RepositoryManager
	auther *Auther
}

func setupIntegration(t *testing.T) *integrationEnv {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file:authflow?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for _, model := range []any{(*User)(nil), (*PasswordReset)(nil)} {
		_, err = db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
		_, err = db.NewTruncateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}

	repo := NewRepositoryManager(db)

	cfg := newTestConfig()
	secrets, err := NewSecrets(cfg.GetAccessSigningKey(), cfg.GetRefreshSigningKey())
	require.NoError(t, err)

	tokens := NewTokenService(secrets, cfg, nil)

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	store, err := tokenstore.New(tokenstore.Options{
		Strategy: tokenstore.StrategyCache,
		Redis:    client,
	})
	require.NoError(t, err)

	issuer := NewTokenIssuer(tokens, store, cfg, nil)
	provider := NewUserProvider(repo.Users()).WithPasswordCost(4)
	auther := NewAuthenticator(provider, provider, issuer)

	return &integrationEnv{repo: repo, auther: auther}
}

func TestIntegrationRegisterLoginRefreshLogout(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()

	payload, err := env.auther.Register(ctx, RegisterUserMessage{
		FirstName: "Alice",
		Email:     "alice@example.com",
		Password:  "pw12345678",
	})
	require.NoError(t, err)
	require.NotEmpty(t, payload.AccessToken)
	require.NotEmpty(t, payload.RefreshToken)

	// the account persisted
	user, err := env.repo.Users().GetByIdentifier(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	// login issues a fresh pair, displacing the registration session
	login, err := env.auther.Login(ctx, "alice@example.com", "pw12345678")
	require.NoError(t, err)

	_, err = env.auther.Refresh(ctx, payload.RefreshToken)
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, ErrInvalidRefresh))

	// the live refresh token rotates exactly once
	rotated, err := env.auther.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)

	_, err = env.auther.Refresh(ctx, login.RefreshToken)
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, ErrInvalidRefresh))

	// logout kills the remaining session
	env.auther.Logout(ctx, rotated.RefreshToken)

	_, err = env.auther.Refresh(ctx, rotated.RefreshToken)
	require.Error(t, err)
}

func TestIntegrationLoginAttemptsPersist(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()

	_, err := env.auther.Register(ctx, RegisterUserMessage{
		Email:    "bob@example.com",
		Password: "pw12345678",
	})
	require.NoError(t, err)

	_, err = env.auther.Login(ctx, "bob@example.com", "wrong-password")
	require.Error(t, err)

	user, err := env.repo.Users().GetByIdentifier(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, user.LoginAttempts)
	assert.NotNil(t, user.LoginAttemptAt)

	// a successful login clears the counter
	_, err = env.auther.Login(ctx, "bob@example.com", "pw12345678")
	require.NoError(t, err)

	user, err = env.repo.Users().GetByIdentifier(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, user.LoginAttempts)
	assert.Nil(t, user.LoginAttemptAt)
}

func TestIntegrationPasswordResetFlow(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()

	registered, err := env.auther.Register(ctx, RegisterUserMessage{
		Email:    "carol@example.com",
		Password: "old-password-1",
	})
	require.NoError(t, err)

	// initialize: creates the reset session and hands off the token
	var resetID string
	var resp *InitializePasswordResetResponse
	init := NewInitializePasswordResetHandler(env.repo).
		WithNotifier(func(email, token string) { resetID = token })

	err = init.Execute(ctx, InitializePasswordResetMessage{
		Email:      "carol@example.com",
		OnResponse: func(r *InitializePasswordResetResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Reset)
	assert.Equal(t, ResetRequestedStatus, resp.Reset.Status)

	if resetID == "" {
		// the notifier runs on its own goroutine; the response carries
		// the same session id
		resetID = resp.Reset.ID.String()
	}

	// the session is verifiable before use
	var check *AccountVerificationResponse
	verify := NewAccountVerificationHandler(env.repo)
	err = verify.Execute(ctx, AccountVerificationMessage{
		Session:    resetID,
		OnResponse: func(r *AccountVerificationResponse) { check = r },
	})
	require.NoError(t, err)
	require.NotNil(t, check)
	assert.True(t, check.Found)
	assert.False(t, check.Expired)

	// finalize: swaps the password and revokes live sessions
	finalize := NewFinalizePasswordResetHandler(env.repo).
		WithTokenIssuer(env.auther.Issuer())

	err = finalize.Execute(ctx, FinalizePasswordResetMessage{
		Session:  resetID,
		Password: "new-password-1",
	})
	require.NoError(t, err)

	_, err = env.auther.Login(ctx, "carol@example.com", "old-password-1")
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, ErrInvalidCredentials))

	_, err = env.auther.Login(ctx, "carol@example.com", "new-password-1")
	require.NoError(t, err)

	// the refresh token issued before the reset no longer exchanges
	_, err = env.auther.Refresh(ctx, registered.RefreshToken)
	require.Error(t, err)

	// the session cannot be replayed
	err = finalize.Execute(ctx, FinalizePasswordResetMessage{
		Session:  resetID,
		Password: "even-newer-pw-1",
	})
	require.Error(t, err)
}

func TestIntegrationPasswordResetUnknownEmailQuietSuccess(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()

	var resp *InitializePasswordResetResponse
	init := NewInitializePasswordResetHandler(env.repo)

	err := init.Execute(ctx, InitializePasswordResetMessage{
		Email:      "nobody@example.com",
		OnResponse: func(r *InitializePasswordResetResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Reset)
}

func TestIntegrationVerifyUnknownSession(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()

	var check *AccountVerificationResponse
	verify := NewAccountVerificationHandler(env.repo)

	err := verify.Execute(ctx, AccountVerificationMessage{
		Session:    "7cf54cae-2f40-4b48-b7ae-6ac924d48806",
		OnResponse: func(r *AccountVerificationResponse) { check = r },
	})
	require.NoError(t, err)
	require.NotNil(t, check)
	assert.False(t, check.Found)
}
