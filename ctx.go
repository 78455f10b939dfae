package motors

import (
	"context"

	"github.com/goliatone/go-router"
)

// SessionContextKey is the default locals key the session middleware
// publishes verified claims under.
var SessionContextKey = "session"

var accountCtxKey = &contextKey{"account"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the Account in the given context
func WithContext(r context.Context, account *Account) context.Context {
	return context.WithValue(r, accountCtxKey, account)
}

// FromContext finds the account from the context.
func FromContext(ctx context.Context) (*Account, bool) {
	raw, ok := ctx.Value(accountCtxKey).(*Account)
	return raw, ok
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(r context.Context, claims AuthClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// GetRouterClaims extracts the AuthClaims from the router context
func GetRouterClaims(ctx router.Context, key string) (AuthClaims, bool) {
	if key == "" {
		key = SessionContextKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}

// CanManageInventory reports whether the router context carries a session
// allowed into the inventory management area.
func CanManageInventory(ctx router.Context) bool {
	claims, ok := GetRouterClaims(ctx, "")
	if !ok {
		return false
	}
	return claims.CanManageInventory()
}
