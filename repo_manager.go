package auth

import (
	"context"
	"database/sql"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryManager bundles the persistence surface the auth flows touch:
// the users repository, the password reset repository, and transactional
// execution for the command handlers.
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	PasswordResets() repository.Repository[*PasswordReset]
}

// NewPasswordResetsRepository builds the reset-request repository. Reset
// records are fetched by id during verification and finalize, and by email
// when a user asks for a fresh link.
func NewPasswordResetsRepository(db *bun.DB) repository.Repository[*PasswordReset] {
	return repository.NewRepository(db, repository.ModelHandlers[*PasswordReset]{
		NewRecord: func() *PasswordReset { return &PasswordReset{} },
		GetID: func(record *PasswordReset) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID:         func(record *PasswordReset, id uuid.UUID) { record.ID = id },
		GetIdentifier: func() string { return "email" },
	})
}

type repoManager struct {
	db     *bun.DB
	users  Users
	resets repository.Repository[*PasswordReset]
}

// NewRepositoryManager wires both repositories over a shared bun handle so
// RunInTx can span them.
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &repoManager{
		db:     db,
		users:  NewUsersRepository(db),
		resets: NewPasswordResetsRepository(db),
	}
}

func (m repoManager) Validate() error {
	if m.db == nil {
		return goerrors.New("repository manager needs a database handle", goerrors.CategoryInternal)
	}

	if m.users == nil {
		return goerrors.New("repository manager needs a users repository", goerrors.CategoryInternal)
	}

	if m.resets == nil {
		return goerrors.New("repository manager needs a password resets repository", goerrors.CategoryInternal)
	}

	return nil
}

func (m repoManager) MustValidate() {
	if err := m.Validate(); err != nil {
		panic(err)
	}
}

// RunInTx runs a unit of work in a transaction. A context cancelled before
// the transaction begins short-circuits without touching the database.
func (m repoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.db.RunInTx(ctx, opts, f)
}

func (m repoManager) Users() Users {
	return m.users
}

func (m repoManager) PasswordResets() repository.Repository[*PasswordReset] {
	return m.resets
}
