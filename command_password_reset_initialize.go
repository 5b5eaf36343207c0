package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Customer email."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

type InitializePasswordResetResponse struct {
	Reset   *PasswordReset
	Success bool
}

// InitializePasswordResetHandler creates a reset record for a known email
// and hands the token off for delivery. Unknown emails succeed quietly so
// the endpoint cannot be used to probe for accounts.
type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	notifier func(email, token string)
	logger   Logger
}

// NewInitializePasswordResetHandler creates the handler with defaults.
func NewInitializePasswordResetHandler(repo RepositoryManager) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:     repo,
		notifier: logEmailNotification,
		logger:   defLogger{},
	}
}

// WithNotifier overrides the reset-link delivery hook.
func (h *InitializePasswordResetHandler) WithNotifier(notifier func(email, token string)) *InitializePasswordResetHandler {
	if notifier != nil {
		h.notifier = notifier
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	reset := &PasswordReset{}
	resp := &InitializePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				// Pretend success for unknown emails.
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
		}

		reset.UserID = &user.ID
		reset.Email = event.Email
		reset.Status = ResetRequestedStatus
		if createdReset, err := h.repo.PasswordResets().CreateTx(ctx, tx, reset); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create password reset record")
		} else {
			resp.Reset = createdReset
		}

		go h.notifier(resp.Reset.Email, resp.Reset.ID.String())

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func logEmailNotification(email, id string) {
	defLogger{}.Info("password reset requested for %s link=/auth/password-reset/%s", email, id)
}
