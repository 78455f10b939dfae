package motors

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/parkmoor/motors/middleware/sessionware"
)

// Messages shown by the route gates. They match the site copy, so tests and
// templates stay in sync.
const (
	PleaseLogInMessage   = "Please log in."
	NotAuthorizedMessage = "You are not authorized to access Inventory Management."
)

// RouteAuthenticator glues the Authenticator to HTTP: it moves session
// tokens in and out of the cookie, and builds the route middleware gates.
type RouteAuthenticator struct {
	auth             Authenticator
	cfg              Config
	flash            *FlashQueue
	cookieDuration   time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	if cfg.GetSigningKey() == "" {
		return nil, ErrMissingSigningKey
	}

	cookieDuration := time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Second
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
		flash: NewFlashQueue(
			WithFlashSecure(cfg.IsProduction()),
		),
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	a.Logger = logger
	return a
}

// WithFlashQueue replaces the default flash queue, e.g. to share one queue
// between the authenticator and the controllers.
func (a *RouteAuthenticator) WithFlashQueue(queue *FlashQueue) *RouteAuthenticator {
	a.flash = queue
	return a
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// Flash exposes the queue so controllers can reuse it
func (a *RouteAuthenticator) Flash() *FlashQueue {
	return a.flash
}

// WebSession attaches the session to every request that carries a valid
// token and lets anonymous requests through. A stale or tampered cookie is
// cleared on the way past.
func (a *RouteAuthenticator) WebSession() router.MiddlewareFunc {
	return sessionware.New(a.sessionConfig(sessionware.Config{
		Optional: true,
	}))
}

// RequireAuthenticated rejects anonymous requests: the visitor gets a
// "Please log in." notice and lands on the login page, with the original
// URL remembered for after login.
func (a *RouteAuthenticator) RequireAuthenticated() router.MiddlewareFunc {
	return sessionware.New(a.sessionConfig(sessionware.Config{
		ErrorHandler: a.MakeClientRouteAuthErrorHandler(false),
	}))
}

// RequireAccountType admits only sessions whose role is in the allowed set.
// Anonymous visitors are asked to log in; authenticated visitors with an
// insufficient role are turned away with a notice.
func (a *RouteAuthenticator) RequireAccountType(allowed ...AccountType) router.MiddlewareFunc {
	roles := make([]string, 0, len(allowed))
	for _, role := range allowed {
		roles = append(roles, string(role))
	}

	return sessionware.New(a.sessionConfig(sessionware.Config{
		AllowedRoles: roles,
		ErrorHandler: a.MakeClientRouteAuthErrorHandler(false),
	}))
}

func (a *RouteAuthenticator) sessionConfig(cfg sessionware.Config) sessionware.Config {
	cfg.TokenValidator = a.sessionValidator()
	cfg.SigningKey = sessionware.SigningKey{
		Key:    []byte(a.cfg.GetSigningKey()),
		JWTAlg: a.cfg.GetSigningMethod(),
	}
	cfg.ContextKey = a.cfg.GetContextKey()
	cfg.TokenLookup = "cookie:" + a.cfg.GetContextKey()
	cfg.ContextEnricher = ContextEnricherAdapter
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = a.MakeClientRouteAuthErrorHandler(cfg.Optional)
	}
	return cfg
}

func (a *RouteAuthenticator) sessionValidator() sessionware.TokenValidator {
	return validatorAdapter{auth: a.auth}
}

// validatorAdapter bridges the root package validator into the middleware
// package without an import cycle.
type validatorAdapter struct {
	auth Authenticator
}

func (v validatorAdapter) Validate(tokenString string) (sessionware.AuthClaims, error) {
	if svc, ok := v.auth.(interface{ TokenService() TokenService }); ok {
		claims, err := svc.TokenService().Validate(tokenString)
		if err != nil {
			return nil, err
		}
		return claims, nil
	}

	session, err := v.auth.SessionFromToken(tokenString)
	if err != nil {
		return nil, err
	}

	return claimsFromSession(session), nil
}

// Login verifies the payload and, on success, sets the session cookie
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) error {
	token, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return err
	}

	a.setCookieToken(ctx, token, a.cookieDuration)
	return nil
}

// Logout clears the session cookie. The token itself stays valid until it
// expires; the browser just stops sending it.
func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
}

func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if errors.Is(err, sessionware.ErrSessionUnauthorized) {
			richErr = errors.Wrap(err, errors.CategoryAuthz, NotAuthorizedMessage).
				WithCode(errors.CodeForbidden).
				WithTextCode("ROLE_DENIED")
		} else if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsBadSignatureError(err) {
			richErr = ErrTokenBadSignature
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

// GetRedirect pops the remembered pre-login URL, or returns the default
func (a *RouteAuthenticator) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		if len(def) > 0 {
			return def[0]
		}
		return a.cfg.GetRejectedRouteDefault()
	}
	a.cookieDel(ctx, rejectedRoute)
	return r
}

func (a *RouteAuthenticator) GetRedirectOrDefault(ctx router.Context) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	refererHeader := string(ctx.Referer())

	r := ctx.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = a.cfg.GetRejectedRouteDefault()
	}
	a.cookieDel(ctx, rejectedRoute)
	return r
}

// SetRedirect remembers the URL that was rejected so the visitor comes back
// to it after logging in.
func (a *RouteAuthenticator) SetRedirect(ctx router.Context) {
	rejectedRoute := a.cfg.GetRejectedRouteKey()

	a.Logger.Info("Setting redirect cookie", "key", rejectedRoute, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   a.cfg.IsProduction(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   a.cfg.IsProduction(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.IsProduction(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error, redirecting to login",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	if richErr.Category == errors.CategoryAuthz {
		a.flash.PushNotice(c, NotAuthorizedMessage)
	} else {
		a.flash.PushNotice(c, PleaseLogInMessage)
		a.SetRedirect(c)
	}

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect(a.loginRoute(), statusCode)
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}

func (a *RouteAuthenticator) loginRoute() string {
	if r := a.cfg.GetLoginRoute(); r != "" {
		return r
	}
	return "/login"
}

// claimsFromSession rebuilds a claim view from an already verified session
func claimsFromSession(session Session) AuthClaims {
	so := &SessionObject{
		AccountID: session.GetAccountID(),
		Name:      session.GetName(),
		Role:      session.GetRole(),
	}
	if iat := session.GetIssuedAt(); iat != nil {
		so.IssuedAt = iat
	}
	if exp := session.GetExpiration(); exp != nil {
		so.ExpirationDate = exp
	}
	return sessionClaimsView{so}
}

// sessionClaimsView adapts a SessionObject to the AuthClaims interface
type sessionClaimsView struct {
	session *SessionObject
}

func (v sessionClaimsView) Subject() string          { return v.session.AccountID }
func (v sessionClaimsView) AccountID() string        { return v.session.AccountID }
func (v sessionClaimsView) Name() string             { return v.session.Name }
func (v sessionClaimsView) Role() string             { return string(v.session.Role) }
func (v sessionClaimsView) HasRole(role string) bool { return v.session.HasRole(role) }
func (v sessionClaimsView) IsAtLeast(minRole string) bool {
	return v.session.IsAtLeast(AccountType(minRole))
}
func (v sessionClaimsView) CanManageInventory() bool { return v.session.CanManageInventory() }
func (v sessionClaimsView) Expires() time.Time {
	if v.session.ExpirationDate != nil {
		return *v.session.ExpirationDate
	}
	return time.Time{}
}
func (v sessionClaimsView) IssuedAt() time.Time {
	if v.session.IssuedAt != nil {
		return *v.session.IssuedAt
	}
	return time.Time{}
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)
