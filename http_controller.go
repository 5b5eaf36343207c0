package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the authentication endpoints on the router.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("auth.register.post")

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login.post")

	app.Post(controller.Routes.Refresh, controller.RefreshPost).
		SetName("auth.refresh.post")

	app.Post(controller.Routes.Logout, controller.LogoutPost).
		SetName("auth.logout.post")

	app.Post(controller.Routes.PasswordReset, controller.PasswordResetPost).
		SetName("auth.pwd-reset.post")

	app.Get(fmt.Sprintf("%s/:uuid", controller.Routes.PasswordReset), controller.PasswordResetCheck).
		SetName("auth.pwd-reset-check.get")

	app.Post(fmt.Sprintf("%s/:uuid", controller.Routes.PasswordReset), controller.PasswordResetExecute).
		SetName("auth.pwd-reset-do.post")
}

type AuthControllerRoutes struct {
	Login         string
	Logout        string
	Refresh       string
	Register      string
	PasswordReset string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Auther       Authenticator
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerRepo sets the repository manager.
func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

// WithControllerAuther sets the Authenticator backing the endpoints.
func WithControllerAuther(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:         "/auth/login",
			Logout:        "/auth/logout",
			Refresh:       "/auth/refresh",
			Register:      "/auth/register",
			PasswordReset: "/auth/password-reset",
		},
	}

	c.ErrorHandler = c.renderError

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, badPayload(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, invalidPayload(err))
	}

	result, err := a.Auther.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, authPayloadBody(result))
}

// RegistrationCreatePayload is the registration payload
type RegistrationCreatePayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload: %v", err)
		return a.ErrorHandler(ctx, badPayload(err))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload: %v", err)
		return a.ErrorHandler(ctx, invalidPayload(err))
	}

	req := RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		Email:     payload.Email,
		Password:  payload.Password,
	}

	result, err := a.Auther.Register(ctx.Context(), req)
	if err != nil {
		a.Logger.Error("register user error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, authPayloadBody(result))
}

// RefreshRequest carries the refresh token to exchange
type RefreshRequest struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func (a *AuthController) RefreshPost(ctx router.Context) error {
	payload := new(RefreshRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, badPayload(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, invalidPayload(err))
	}

	pair, err := a.Auther.Refresh(ctx.Context(), payload.RefreshToken)
	if err != nil {
		a.Logger.Warn("refresh rejected: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, pair)
}

// LogoutRequest carries the token whose session should end
type LogoutRequest struct {
	Token string `form:"token" json:"token"`
}

func (a *AuthController) LogoutPost(ctx router.Context) error {
	payload := new(LogoutRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, badPayload(err))
	}

	token := payload.Token
	if token == "" {
		// fall back to the bearer header
		token = bearerToken(ctx)
	}

	a.Auther.Logout(ctx.Context(), token)

	return ctx.Status(http.StatusNoContent).SendString("")
}

// PasswordResetRequestPayload holds values for password reset
type PasswordResetRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r PasswordResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AuthController) PasswordResetPost(ctx router.Context) error {
	payload := new(PasswordResetRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset parse payload: %v", err)
		return a.ErrorHandler(ctx, badPayload(err))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset validate payload: %v", err)
		return a.ErrorHandler(ctx, invalidPayload(err))
	}

	req := InitializePasswordResetMessage{
		Email:      payload.Email,
		OnResponse: func(*InitializePasswordResetResponse) {},
	}

	initPwdReset := NewInitializePasswordResetHandler(a.Repo).WithLogger(a.Logger)

	if err := initPwdReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset init error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	// The response does not reveal whether the email exists.
	return ctx.JSON(router.StatusOK, map[string]any{"success": true})
}

// PasswordResetCheck reports whether a reset session is still usable so a
// client can show the form or an expiry notice before asking for passwords.
func (a *AuthController) PasswordResetCheck(ctx router.Context) error {
	sessionID := ctx.Param("uuid")

	var result *AccountVerificationResponse
	req := AccountVerificationMessage{
		Session: sessionID,
		OnResponse: func(resp *AccountVerificationResponse) {
			result = resp
		},
	}

	verify := NewAccountVerificationHandler(a.Repo)
	if err := verify.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset check error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// PasswordResetVerifyPayload holds values for password reset
type PasswordResetVerifyPayload struct {
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r PasswordResetVerifyPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(10, 100),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) PasswordResetExecute(ctx router.Context) error {
	sessionID := ctx.Param("uuid")

	payload := new(PasswordResetVerifyPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset parse payload: %v", err)
		return a.ErrorHandler(ctx, badPayload(err))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset validate payload: %v", err)
		return a.ErrorHandler(ctx, invalidPayload(err))
	}

	input := FinalizePasswordResetMessage{
		Session:  sessionID,
		Password: payload.Password,
	}

	finalizePwdReset := NewFinalizePasswordResetHandler(a.Repo).WithLogger(a.Logger)
	if auther, ok := a.Auther.(*Auther); ok {
		finalizePwdReset = finalizePwdReset.WithTokenIssuer(auther.Issuer())
	}

	if err := finalizePwdReset.Execute(ctx.Context(), input); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"success": true})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

func (a *AuthController) renderError(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	return c.JSON(statusForError(richErr), errorBody(richErr))
}

func authPayloadBody(payload *AuthPayload) map[string]any {
	return map[string]any{
		"user": map[string]any{
			"id":       payload.Identity.ID(),
			"username": payload.Identity.Username(),
			"email":    payload.Identity.Email(),
		},
		"access_token":  payload.AccessToken,
		"refresh_token": payload.RefreshToken,
	}
}

func badPayload(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request payload")
}

func invalidPayload(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid request payload").
		WithMetadata(map[string]any{"validation": err.Error()})
}

func bearerToken(ctx router.Context) string {
	header := ctx.GetString(router.HeaderAuthorization, "")
	const scheme = "Bearer "
	if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
		return strings.TrimSpace(header[len(scheme):])
	}
	return ""
}
