package tokenstore

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// RefreshToken is the durable record of a subject's live refresh token.
// One row per subject; rotation and revocation operate on the row in place.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rtk"`

	SubjectID string    `bun:"subject_id,pk" json:"subject_id"`
	Token     string    `bun:"token,notnull" json:"-"`
	ExpiresAt time.Time `bun:"expires_at,notnull" json:"expires_at"`
	IssuedAt  time.Time `bun:"issued_at,notnull" json:"issued_at"`
}

// BunStore keeps refresh tokens in a relational table so they survive
// process restarts. Rotation runs inside a transaction guarded by the
// token value so concurrent rotations serialize on the row.
type BunStore struct {
	db *bun.DB
}

// NewBunStore returns a durable Store backed by db.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

func (s *BunStore) Put(ctx context.Context, subject, token string, ttl time.Duration) error {
	now := time.Now()
	rec := &RefreshToken{
		SubjectID: subject,
		Token:     token,
		ExpiresAt: now.Add(ttl),
		IssuedAt:  now,
	}

	_, err := s.db.NewInsert().
		Model(rec).
		On("CONFLICT (subject_id) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("expires_at = EXCLUDED.expires_at").
		Set("issued_at = EXCLUDED.issued_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *BunStore) Validate(ctx context.Context, subject, token string) error {
	rec := new(RefreshToken)
	err := s.db.NewSelect().
		Model(rec).
		Where("subject_id = ?", subject).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTokenNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if subtle.ConstantTimeCompare([]byte(rec.Token), []byte(token)) != 1 {
		return ErrTokenMismatch
	}
	if time.Now().After(rec.ExpiresAt) {
		return ErrTokenNotFound
	}
	return nil
}

func (s *BunStore) Rotate(ctx context.Context, subject, oldToken, newToken string, ttl time.Duration) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()

		res, err := tx.NewUpdate().
			Model((*RefreshToken)(nil)).
			Set("token = ?", newToken).
			Set("expires_at = ?", now.Add(ttl)).
			Set("issued_at = ?", now).
			Where("subject_id = ?", subject).
			Where("token = ?", oldToken).
			Where("expires_at > ?", now).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if rows == 0 {
			// Either the subject has no row or someone else already
			// rotated; the caller cannot tell the difference and must
			// not retry.
			return ErrTokenMismatch
		}
		return nil
	})
	return err
}

func (s *BunStore) Revoke(ctx context.Context, subject string) error {
	_, err := s.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("subject_id = ?", subject).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
