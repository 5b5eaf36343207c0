package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// RegisterUserMessage carries the attributes of a new account request.
type RegisterUserMessage struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	UseHashid  bool
	OnResponse func(user *User)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler executes a registration message against the account
// registry.
type RegisterUserHandler struct {
	registry AccountRegistrerer
}

// NewRegisterUserHandler creates the handler.
func NewRegisterUserHandler(registry AccountRegistrerer) *RegisterUserHandler {
	return &RegisterUserHandler{registry: registry}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.registry.RegisterUser(ctx, event)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
