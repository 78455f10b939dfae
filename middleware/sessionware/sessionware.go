package sessionware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup     = "cookie:" + DefaultCookieName
	ErrSessionMissing      = errors.New("missing or malformed session token")
	ErrSessionUnauthorized = errors.New("session does not meet role requirements")
)

// DefaultCookieName is the cookie carrying the session token
const DefaultCookieName = "session"

// TokenValidator interface for validating tokens without import cycles.
// This mirrors the TokenService.Validate method from the root package.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// AuthClaims interface for structured claims without import cycles.
// This mirrors the AuthClaims interface from the root package.
type AuthClaims interface {
	Subject() string
	AccountID() string
	Name() string
	Role() string
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
	CanManageInventory() bool
}

// ValidationListener is invoked after a token has been validated but before authorization checks.
type ValidationListener func(ctx router.Context, claims AuthClaims) error

type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	SigningKey     SigningKey
	SigningKeys    map[string]SigningKey
	ContextKey     string
	TokenLookup    string
	AuthScheme     string
	KeyFunc        jwt.Keyfunc
	JWKSetURLs     []string
	// TokenValidator is required for token validation
	TokenValidator TokenValidator

	// Optional makes the middleware pass anonymous requests through instead
	// of rejecting them. A present but invalid token still clears the stale
	// cookie before continuing, so browsers stop replaying dead sessions.
	Optional bool

	// RoleChecker is an optional function to validate roles against custom logic
	RoleChecker func(AuthClaims, string) bool
	// RequiredRole specifies an exact role that must be present
	RequiredRole string
	// MinimumRole specifies the minimum role level required (uses role hierarchy)
	MinimumRole string
	// AllowedRoles admits the request when the session role matches any entry
	AllowedRoles []string

	// ContextEnricher is an optional function to propagate claims to the standard
	// Go context. If provided, it will be called after successful token validation.
	ContextEnricher func(c context.Context, claims AuthClaims) context.Context

	// ValidationListeners are invoked after token validation succeeds. Use them to
	// emit events or perform bookkeeping before the request proceeds.
	ValidationListeners []ValidationListener

	// TemplateAccountKey specifies the key for storing account data for templates
	// in the router context. If set, the middleware stores the session account
	// under this key so every view can render the logged-in header state.
	TemplateAccountKey string
	// AccountProvider is an optional function to convert AuthClaims to an account
	// object for templates. If not provided, the AuthClaims are stored directly.
	AccountProvider func(AuthClaims) (any, error)
}

type SigningKey struct {
	JWTAlg string
	Key    any
}

// New builds the session middleware. It extracts the token, validates it,
// runs the configured role checks, and publishes claims to the request
// locals and, optionally, the standard context.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := ExtractRawTokenFromContext(ctx, cfg.getExtractors())
			if err != nil {
				if cfg.Optional {
					return ctx.Next()
				}
				return cfg.ErrorHandler(ctx, err)
			}

			claims, err := cfg.TokenValidator.Validate(raw)
			if err != nil {
				if cfg.Optional {
					cfg.clearSessionCookie(ctx)
					return ctx.Next()
				}
				return cfg.ErrorHandler(ctx, err)
			}

			if err := cfg.runValidationListeners(ctx, claims); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := performAuthorizationChecks(claims, cfg); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, claims)

			if cfg.TemplateAccountKey != "" {
				var templateAccount any
				if cfg.AccountProvider != nil {
					account, err := cfg.AccountProvider(claims)
					if err != nil {
						templateAccount = claims
					} else {
						templateAccount = account
					}
				} else {
					templateAccount = claims
				}

				if accountMap, ok := templateAccount.(map[string]any); ok {
					ctx.LocalsMerge(cfg.TemplateAccountKey, accountMap)
				} else {
					ctx.Locals(cfg.TemplateAccountKey, templateAccount)
				}
			}

			if cfg.ContextEnricher != nil {
				stdCtx := ctx.Context()
				stdCtxWithClaims := cfg.ContextEnricher(stdCtx, claims)
				ctx.SetContext(stdCtxWithClaims)
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

// performAuthorizationChecks runs the configured role checks against the claims
func performAuthorizationChecks(claims AuthClaims, cfg Config) error {
	if cfg.RequiredRole == "" && cfg.MinimumRole == "" && len(cfg.AllowedRoles) == 0 && cfg.RoleChecker == nil {
		return nil
	}

	if cfg.RequiredRole != "" {
		if !claims.HasRole(cfg.RequiredRole) {
			return fmt.Errorf("%w: required role %q not found", ErrSessionUnauthorized, cfg.RequiredRole)
		}
	}

	if cfg.MinimumRole != "" {
		if !claims.IsAtLeast(cfg.MinimumRole) {
			return fmt.Errorf("%w: minimum role %q required", ErrSessionUnauthorized, cfg.MinimumRole)
		}
	}

	if len(cfg.AllowedRoles) > 0 {
		allowed := false
		for _, role := range cfg.AllowedRoles {
			if claims.HasRole(role) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%w: role %q not in allowed set", ErrSessionUnauthorized, claims.Role())
		}
	}

	if cfg.RoleChecker != nil {
		roleToCheck := cfg.RequiredRole
		if roleToCheck == "" {
			roleToCheck = cfg.MinimumRole
		}

		if roleToCheck != "" && !cfg.RoleChecker(claims, roleToCheck) {
			return fmt.Errorf("%w: custom role check failed for role %q", ErrSessionUnauthorized, roleToCheck)
		}
	}

	return nil
}

func ExtractRawTokenFromContext(ctx router.Context, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			if err.Error() == ErrSessionMissing.Error() {
				return c.Status(router.StatusBadRequest).SendString(ErrSessionMissing.Error())
			}
			return c.Status(router.StatusUnauthorized).SendString("Invalid or expired session")
		}
	}

	if cfg.TokenValidator == nil {
		panic("MOTORS: session middleware configuration: TokenValidator is required.")
	}

	if cfg.SigningKey.Key == nil && len(cfg.SigningKeys) == 0 && len(cfg.JWKSetURLs) == 0 && cfg.KeyFunc == nil {
		panic("MOTORS: session middleware configuration: At least one of the following is required: KeyFunc, JWKSetURLs, SigningKeys, or SigningKey.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "session"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.KeyFunc == nil {
		if len(cfg.SigningKeys) > 0 || len(cfg.JWKSetURLs) > 0 {
			var givenKeys map[string]keyfunc.GivenKey
			if cfg.SigningKeys != nil {
				givenKeys = make(map[string]keyfunc.GivenKey, len(cfg.SigningKeys))
				for kid, key := range cfg.SigningKeys {
					givenKeys[kid] = keyfunc.NewGivenCustom(key.Key, keyfunc.GivenKeyOptions{
						Algorithm: key.JWTAlg,
					})
				}
			}
			if len(cfg.JWKSetURLs) > 0 {
				var err error
				cfg.KeyFunc, err = multiKeyfunc(givenKeys, cfg.JWKSetURLs)
				if err != nil {
					panic("Failed to create keyfunc from JWK Set URL: " + err.Error())
				}
			} else {
				cfg.KeyFunc = keyfunc.NewGiven(givenKeys).Keyfunc
			}
		} else {
			cfg.KeyFunc = signingKeyFunc(cfg.SigningKey)
		}
	}

	if cfg.TemplateAccountKey == "" {
		cfg.TemplateAccountKey = "current_account"
	}

	return cfg
}

func multiKeyfunc(givenKeys map[string]keyfunc.GivenKey, jwtSetUrls []string) (jwt.Keyfunc, error) {
	opts := keyfuncOptions(givenKeys)
	m := make(map[string]keyfunc.Options, len(jwtSetUrls))
	for _, url := range jwtSetUrls {
		m[url] = opts
	}
	mopts := keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	}
	multi, err := keyfunc.GetMultiple(m, mopts)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWT URLs: %w", err)
	}
	return multi.Keyfunc, nil
}

func keyfuncOptions(givenKeys map[string]keyfunc.GivenKey) keyfunc.Options {
	return keyfunc.Options{
		GivenKeys: givenKeys,
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWT set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}
}

func (cfg *Config) getExtractors() []TokenExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(ctx router.Context, claims AuthClaims) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(ctx, claims); err != nil {
			return err
		}
	}
	return nil
}

// clearSessionCookie expires the cookie named in a cookie: lookup so the
// browser stops replaying a rejected token.
func (cfg *Config) clearSessionCookie(ctx router.Context) {
	for _, rootPart := range strings.Split(cfg.TokenLookup, ",") {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 || parts[0] != "cookie" {
			continue
		}
		ctx.Cookie(&router.Cookie{
			Name:     strings.TrimSpace(parts[1]),
			Value:    "",
			Expires:  time.Now().Add(-time.Hour),
			HTTPOnly: true,
			SameSite: "Lax",
		})
	}
}

func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// cookie:session,header:Authorization,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, tokenFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

type TokenExtractor func(c router.Context) (string, error)

// tokenFromHeader returns a function that extracts the token from the request header.
func tokenFromHeader(header string, authScheme string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		l := len(authScheme)
		if l == 0 {
			fmt.Println("[WARNING] Missing auth scheme in config definition")
			return "", ErrSessionMissing
		}
		authScheme = strings.TrimSpace(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrSessionMissing
	}
}

// tokenFromQuery returns a function that extracts the token from the query string.
func tokenFromQuery(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrSessionMissing
		}
		return token, nil
	}
}

// tokenFromParam returns a function that extracts the token from the url param string.
func tokenFromParam(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrSessionMissing
		}
		return token, nil
	}
}

// tokenFromCookie returns a function that extracts the token from the named cookie.
func tokenFromCookie(name string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrSessionMissing
		}
		return token, nil
	}
}

func signingKeyFunc(key SigningKey) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if key.JWTAlg != "" {
			alg, ok := token.Header["alg"].(string)
			if !ok {
				return nil, fmt.Errorf("unexpected JWT signing method: expected %q got: missing json type", key.JWTAlg)
			}
			if alg != key.JWTAlg {
				return nil, fmt.Errorf("unexpected jwt signing method: expected: %q: got: %q", key.JWTAlg, alg)
			}
		}
		return key.Key, nil
	}
}
