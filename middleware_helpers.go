package motors

import (
	"context"

	"github.com/parkmoor/motors/middleware/sessionware"
)

// ValidationListener aliases the sessionware listener so consumers can hook
// the session middleware without importing the subpackage.
type ValidationListener = sessionware.ValidationListener

// ContextEnricherAdapter narrows sessionware claims to the package AuthClaims
// and stores them in the standard context for downstream handlers.
func ContextEnricherAdapter(c context.Context, claims sessionware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}
	return WithClaimsContext(c, authClaims)
}

// RegisterValidationListeners appends listeners to a sessionware.Config in a
// safe, reusable way.
func RegisterValidationListeners(cfg *sessionware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
