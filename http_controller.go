package motors

import (
	stderrors "errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/nyaruka/phonenumbers"
)

// GetRouterSession recovers the verified session claims published by the
// session middleware.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	raw := c.Locals(key)
	if raw == nil {
		return nil, ErrUnableToFindSession
	}

	claims, ok := raw.(AuthClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToDecodeSession
	}

	return sessionFromAuthClaims(claims)
}

// RegisterAccountRoutes mounts the credential and account routes. The
// /account pages require an authenticated session; login, logout, and
// registration stay public.
func RegisterAccountRoutes[T any](app router.Router[T], opts ...AccountControllerOption) {

	controller := NewAccountController(opts...)

	app.
		Get(controller.Routes.Login,
			controller.LoginShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.Login,
			controller.LoginPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	requireAuth := controller.Auther.RequireAuthenticated()

	app.Get(controller.Routes.Account, requireAuth(controller.AccountShow)).
		SetName("account.get")
	app.Get(fmt.Sprintf("%s/update/:id", controller.Routes.Account), requireAuth(controller.AccountUpdateShow)).
		SetName("account-update.get")
	app.Post(fmt.Sprintf("%s/update", controller.Routes.Account), requireAuth(controller.AccountUpdatePost)).
		SetName("account-update.post")
	app.Post(fmt.Sprintf("%s/update-password", controller.Routes.Account), requireAuth(controller.PasswordUpdatePost)).
		SetName("account-password.post")
}

type AccountControllerRoutes struct {
	Login    string
	Logout   string
	Register string
	Account  string
}

type AccountControllerViews struct {
	Login    string
	Register string
	Account  string
	Update   string
}

type AccountController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AccountControllerRoutes
	Views        *AccountControllerViews
	Auther       HTTPAuthenticator
	Flash        *FlashQueue
	Activity     ActivitySink
	ErrorHandler router.ErrorHandler
}

type AccountControllerOption func(*AccountController) *AccountController

func WithControllerRepo(repo RepositoryManager) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther HTTPAuthenticator) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Auther = auther
		return c
	}
}

func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Logger = logger
		return c
	}
}

func WithControllerFlash(queue *FlashQueue) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Flash = queue
		return c
	}
}

func WithControllerActivity(sink ActivitySink) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Activity = sink
		return c
	}
}

func WithControllerDebug(debug bool) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Debug = debug
		return c
	}
}

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AccountControllerRoutes{
			Login:    "/login",
			Logout:   "/logout",
			Register: "/register",
			Account:  "/account",
		},
		Views: &AccountControllerViews{
			Login:    "account/login",
			Register: "account/register",
			Account:  "account/management",
			Update:   "account/update",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in account controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in account controller...")
	}

	if c.Flash == nil {
		c.Flash = NewFlashQueue()
	}

	c.Activity = normalizeActivitySink(c.Activity)

	return c
}

func (a *AccountController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, MergeTemplateData(ctx, router.ViewContext{
		"errors": nil,
		"record": nil,
	}))
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"email" json:"email"`
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
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// LoginPost handles the credential check. A failed login re-renders the form
// with the single collapsed message and a 401; the email is echoed back, the
// password never is.
func (a *AccountController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Status(router.StatusBadRequest).Render(a.Views.Login, MergeTemplateData(ctx, router.ViewContext{
			"record":     LoginRequest{Identifier: payload.Identifier},
			"validation": FormatValidationErrorToMap(err),
		}))
	}

	if a.Debug {
		fmt.Println("======= ACCOUNT LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload.Identifier))
		fmt.Println("============================")
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		if !IsCredentialError(err) {
			a.Logger.Error("login internal failure", "error", err)
			return a.ErrorHandler(ctx, err)
		}

		return ctx.Status(router.StatusUnauthorized).Render(a.Views.Login, MergeTemplateData(ctx, router.ViewContext{
			"errors": map[string]string{
				"authentication": LoginFailedMessage,
			},
			"record": LoginRequest{Identifier: payload.Identifier},
		}))
	}

	redirect := a.Auther.GetRedirect(ctx, a.Routes.Account)

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *AccountController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return a.Flash.WithSuccess(ctx, "You have been logged out.").
		Redirect("/", router.StatusSeeOther)
}

func (a *AccountController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, MergeTemplateData(ctx, router.ViewContext{
		"errors": map[string]string{},
		"record": RegistrationCreatePayload{},
	}))
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {

	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidPhoneNumber("US"))),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

// echo returns the payload with the credential fields blanked so a failed
// attempt never sends the password back to the browser.
func (r RegistrationCreatePayload) echo() RegistrationCreatePayload {
	r.Password = ""
	r.ConfirmPassword = ""
	return r
}

// RegistrationCreate runs the registration flow. The account type is never
// taken from the form; self-registration always lands on the client role.
func (a *AccountController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register account parse payload: ", "error", err)
		return a.Flash.WithError(ctx, "Error parsing body").
			Status(fiber.StatusBadRequest).
			Render(a.Views.Register, MergeTemplateData(ctx, router.ViewContext{
				"errors": map[string]string{"form": "Failed to parse form"},
				"record": payload.echo(),
			}))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register account validate payload: ", "error", err)

		return a.Flash.WithError(ctx, "Error validating payload").
			Status(fiber.StatusBadRequest).
			Render(a.Views.Register, MergeTemplateData(ctx, router.ViewContext{
				"record":     payload.echo(),
				"validation": FormatValidationErrorToMap(err),
			}))
	}

	req := RegisterAccountMessage{
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     payload.Phone,
		Password:  payload.Password,
		UseHashid: true,
	}

	registerAccount := NewRegisterAccountHandler(a.Repo).WithActivitySink(a.Activity)
	account, err := registerAccount.Execute(ctx.Context(), req)
	if err != nil {
		a.Logger.Error("register account error: ", "error", err)

		if IsConflictError(err) {
			return a.Flash.WithError(ctx, "That email is already registered.").
				Status(fiber.StatusConflict).
				Render(a.Views.Register, MergeTemplateData(ctx, router.ViewContext{
					"record": payload.echo(),
					"errors": map[string]string{"email": "That email is already registered."},
				}))
		}

		return a.Flash.WithError(ctx, "Sorry, the registration failed.").
			Status(fiber.StatusInternalServerError).
			Render(a.Views.Register, MergeTemplateData(ctx, router.ViewContext{
				"record": payload.echo(),
				"errors": map[string]string{"form": "Sorry, the registration failed."},
			}))
	}

	return a.Flash.WithSuccess(ctx,
		fmt.Sprintf("Congratulations, you're registered %s. Please log in.", account.FirstName)).
		Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

// AccountShow renders the account dashboard from fresh store data, so info
// updates appear without waiting for a new session token.
func (a *AccountController) AccountShow(ctx router.Context) error {
	session, err := GetRouterSession(ctx, SessionContextKey)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	account, err := a.Repo.Accounts().GetByID(ctx.Context(), session.GetAccountID())
	if err != nil {
		a.Logger.Error("account show load error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.Account, MergeTemplateData(ctx, router.ViewContext{
		"account": account.Sanitize(),
	}))
}

func (a *AccountController) AccountUpdateShow(ctx router.Context) error {
	session, err := GetRouterSession(ctx, SessionContextKey)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	// Accounts can only edit themselves
	if id := ctx.Param("id", ""); id != "" && id != session.GetAccountID() {
		return a.Flash.WithError(ctx, "You can only update your own account.").
			Redirect(a.Routes.Account, router.StatusSeeOther)
	}

	account, err := a.Repo.Accounts().GetByID(ctx.Context(), session.GetAccountID())
	if err != nil {
		a.Logger.Error("account update load error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.Update, MergeTemplateData(ctx, router.ViewContext{
		"account": account.Sanitize(),
		"errors":  map[string]string{},
	}))
}

// AccountUpdatePayload carries the editable account fields
type AccountUpdatePayload struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Email     string `form:"email" json:"email"`
	Phone     string `form:"phone_number" json:"phone_number"`
}

// Validate will validate the payload
func (r AccountUpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidPhoneNumber("US"))),
	)
}

func (a *AccountController) AccountUpdatePost(ctx router.Context) error {
	session, err := GetRouterSession(ctx, SessionContextKey)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(AccountUpdatePayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("account update parse payload", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Status(router.StatusBadRequest).Render(a.Views.Update, MergeTemplateData(ctx, router.ViewContext{
			"account":    payload,
			"validation": FormatValidationErrorToMap(err),
		}))
	}

	uid, err := session.GetAccountUUID()
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	// a changed email must stay unique
	if existing, err := a.Repo.Accounts().GetByEmail(ctx.Context(), payload.Email); err == nil && existing != nil && existing.ID != uid {
		return ctx.Status(fiber.StatusConflict).Render(a.Views.Update, MergeTemplateData(ctx, router.ViewContext{
			"account": payload,
			"errors":  map[string]string{"email": "That email is already registered."},
		}))
	}

	record := &Account{
		ID:        uid,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
	}

	if _, err := a.Repo.Accounts().UpdateInfo(ctx.Context(), record); err != nil {
		a.Logger.Error("account update error", "error", err)
		return a.Flash.WithError(ctx, "Sorry, the update failed.").
			Render(a.Views.Update, MergeTemplateData(ctx, router.ViewContext{
				"account": payload,
				"errors":  map[string]string{"form": "Sorry, the update failed."},
			}))
	}

	return a.Flash.WithSuccess(ctx, "Account information updated.").
		Redirect(a.Routes.Account, router.StatusSeeOther)
}

// PasswordUpdatePayload is the in-session password change form
type PasswordUpdatePayload struct {
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r PasswordUpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AccountController) PasswordUpdatePost(ctx router.Context) error {
	session, err := GetRouterSession(ctx, SessionContextKey)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(PasswordUpdatePayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password update parse payload", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		account, loadErr := a.Repo.Accounts().GetByID(ctx.Context(), session.GetAccountID())
		if loadErr != nil {
			return a.ErrorHandler(ctx, loadErr)
		}
		return ctx.Status(router.StatusBadRequest).Render(a.Views.Update, MergeTemplateData(ctx, router.ViewContext{
			"account":    account.Sanitize(),
			"validation": FormatValidationErrorToMap(err),
		}))
	}

	uid, err := session.GetAccountUUID()
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		a.Logger.Error("password update hash error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Repo.Accounts().UpdatePassword(ctx.Context(), uid, hash); err != nil {
		a.Logger.Error("password update error", "error", err)
		return a.Flash.WithError(ctx, "Sorry, the password change failed.").
			Redirect(a.Routes.Account, router.StatusSeeOther)
	}

	_ = a.Activity.Record(ctx.Context(), ActivityEvent{
		EventType:  ActivityEventPasswordChanged,
		AccountID:  session.GetAccountID(),
		OccurredAt: time.Now(),
	})

	return a.Flash.WithSuccess(ctx, "Password updated.").
		Redirect(a.Routes.Account, router.StatusSeeOther)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return stderrors.New("values must match")
		}
		return nil
	}
}

// ValidPhoneNumber validates an optional phone field against the given
// default region.
func ValidPhoneNumber(region string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}

		num, err := phonenumbers.Parse(s, region)
		if err != nil {
			return stderrors.New("must be a valid phone number")
		}

		if !phonenumbers.IsValidNumber(num) {
			return stderrors.New("must be a valid phone number")
		}

		return nil
	}
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
