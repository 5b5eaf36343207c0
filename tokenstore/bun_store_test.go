package tokenstore

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupBunStore(t *testing.T) *BunStore {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	_, err = db.NewCreateTable().
		Model((*RefreshToken)(nil)).
		IfNotExists().
		Exec(context.Background())
	require.NoError(t, err)

	_, err = db.NewTruncateTable().
		Model((*RefreshToken)(nil)).
		Exec(context.Background())
	require.NoError(t, err)

	return NewBunStore(db)
}

func TestBunStorePutAndValidate(t *testing.T) {
	store := setupBunStore(t)
	ctx := context.Background()

	err := store.Put(ctx, "subject-1", "token-a", time.Hour)
	require.NoError(t, err)

	assert.NoError(t, store.Validate(ctx, "subject-1", "token-a"))
	assert.ErrorIs(t, store.Validate(ctx, "subject-1", "token-b"), ErrTokenMismatch)
	assert.ErrorIs(t, store.Validate(ctx, "subject-2", "token-a"), ErrTokenNotFound)
}

func TestBunStorePutReplacesPreviousToken(t *testing.T) {
	store := setupBunStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "subject-1", "token-a", time.Hour))
	require.NoError(t, store.Put(ctx, "subject-1", "token-b", time.Hour))

	assert.ErrorIs(t, store.Validate(ctx, "subject-1", "token-a"), ErrTokenMismatch)
	assert.NoError(t, store.Validate(ctx, "subject-1", "token-b"))
}

func TestBunStoreValidateExpired(t *testing.T) {
	store := setupBunStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "subject-1", "token-a", -time.Minute))

	assert.ErrorIs(t, store.Validate(ctx, "subject-1", "token-a"), ErrTokenNotFound)
}

func TestBunStoreRotate(t *testing.T) {
	store := setupBunStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "subject-1", "token-a", time.Hour))

	err := store.Rotate(ctx, "subject-1", "token-a", "token-b", time.Hour)
	require.NoError(t, err)

	assert.NoError(t, store.Validate(ctx, "subject-1", "token-b"))
	assert.ErrorIs(t, store.Validate(ctx, "subject-1", "token-a"), ErrTokenMismatch)
}

func TestBunStoreRotateReplayFails(t *testing.T) {
	store := setupBunStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "subject-1", "token-a", time.Hour))
	require.NoError(t, store.Rotate(ctx, "subject-1", "token-a", "token-b", time.Hour))

	err := store.Rotate(ctx, "subject-1", "token-a", "token-c", time.Hour)
	assert.ErrorIs(t, err, ErrTokenMismatch)

	// The replay must not disturb the live token.
	assert.NoError(t, store.Validate(ctx, "subject-1", "token-b"))
}

func TestBunStoreConcurrentRotateSingleWinner(t *testing.T) {
	store := setupBunStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "subject-1", "token-a", time.Hour))

	const attempts = 16
	results := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.Rotate(ctx, "subject-1", "token-a", "token-"+string(rune('b'+i)), time.Hour)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrTokenMismatch)
		}
	}
	assert.Equal(t, 1, wins, "exactly one rotation should succeed")
}

func TestBunStoreRotateUnknownSubject(t *testing.T) {
	store := setupBunStore(t)
	ctx := context.Background()

	err := store.Rotate(ctx, "subject-1", "token-a", "token-b", time.Hour)
	assert.ErrorIs(t, err, ErrTokenMismatch)
}

func TestBunStoreRevoke(t *testing.T) {
	store := setupBunStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "subject-1", "token-a", time.Hour))
	require.NoError(t, store.Revoke(ctx, "subject-1"))

	assert.ErrorIs(t, store.Validate(ctx, "subject-1", "token-a"), ErrTokenNotFound)

	// Revoking again is a no-op.
	assert.NoError(t, store.Revoke(ctx, "subject-1"))
}
