package motors

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds attributes that are part of an auth session
type Session interface {
	GetAccountID() string
	GetAccountUUID() (uuid.UUID, error)
	GetName() string
	GetRole() AccountType
	GetIssuedAt() *time.Time
	GetExpiration() *time.Time
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	SessionFromToken(token string) (Session, error)
	IdentityFromSession(ctx context.Context, session Session) (Identity, error)
}

type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// Identity holds the attributes of an authenticated account, with the
// credential hash already stripped.
type Identity interface {
	ID() string
	Name() string
	Email() string
	Role() string
}

// TokenService issues and verifies signed session tokens
type TokenService interface {
	Generate(identity Identity) (string, error)
	SignClaims(claims *SessionClaims) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int // seconds
	GetIssuer() string
	GetAudience() []string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
	GetLoginRoute() string
	IsProduction() bool
}

// Middleware holds the route gates the HTTP layer installs
type Middleware interface {
	WebSession() router.MiddlewareFunc
	RequireAuthenticated() router.MiddlewareFunc
	RequireAccountType(allowed ...AccountType) router.MiddlewareFunc
}

// HTTPAuthenticator moves sessions in and out of HTTP requests
type HTTPAuthenticator interface {
	Middleware
	Login(c router.Context, payload LoginPayload) error
	Logout(c router.Context)
	SetRedirect(c router.Context)
	GetRedirect(c router.Context, def ...string) string
	MakeClientRouteAuthErrorHandler(optionalAuth bool) func(c router.Context, err error) error
}

// IdentityProvider ensures we have a store to retrieve auth identities
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	FindIdentityByEmail(ctx context.Context, email string) (Identity, error)
	FindIdentityByID(ctx context.Context, id string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] MOTORS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] MOTORS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] MOTORS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] MOTORS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
