// Package csrf protects the form-driven pages with stateless double-submit
// tokens. A token carries a timestamp and a random nonce; the signature is an
// HMAC over both plus a binding derived from the caller's session cookie, so
// a token minted for one browser session cannot be replayed from another.
package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"
	"github.com/parkmoor/motors/middleware/sessionware"
)

var (
	ErrTokenMissing  = errors.New("csrf token missing")
	ErrTokenInvalid  = errors.New("csrf token invalid")
	ErrTokenExpired  = errors.New("csrf token expired")
	ErrSecretMissing = errors.New("csrf secret required")
)

const (
	// DefaultContextKey is where the minted token lands in the request locals
	DefaultContextKey = "csrf_token"
	// DefaultFormField is the hidden input carrying the token on HTML forms
	DefaultFormField = "_token"
	// DefaultHeader carries the token on XHR requests
	DefaultHeader = "X-CSRF-Token"
	// DefaultHelpersKey is the locals key the template helper map merges into
	DefaultHelpersKey = "template_helpers"
	// DefaultTTL bounds how long a minted token stays valid
	DefaultTTL = 4 * time.Hour

	minSecretLength = 32
	nonceLength     = 16
)

var defaultSafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}

type Config struct {
	// Skip bypasses the middleware for matching requests
	Skip func(router.Context) bool

	// Secret keys the token HMAC. Required, minimum 32 bytes.
	Secret []byte

	// TTL bounds token validity. Zero means DefaultTTL.
	TTL time.Duration

	// Binding ties tokens to the caller. The default reads the session
	// cookie and falls back to the client IP for anonymous visitors.
	Binding func(router.Context) string

	// ContextKey, FormField, and Header control where the token is
	// published and where validation looks for it.
	ContextKey string
	FormField  string
	Header     string

	// SafeMethods pass through without validation
	SafeMethods []string

	// ErrorHandler handles rejected requests. The default responds 403.
	ErrorHandler router.ErrorHandler

	// DisableHelpers skips merging the template helper map into locals
	DisableHelpers bool
	// HelpersKey is the locals key the helper map merges into
	HelpersKey string
}

// CookieBinding returns a Binding that ties tokens to the named cookie,
// falling back to the client IP when the cookie is absent.
func CookieBinding(name string) func(router.Context) string {
	return func(ctx router.Context) string {
		if v := ctx.Cookies(name, ""); v != "" {
			return v
		}
		return "anon:" + ctx.IP()
	}
}

// New builds the CSRF middleware. Every request gets a fresh token published
// to the locals; unsafe methods must echo a valid token back through the form
// field or the header.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := configDefault(config...)
		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return ctx.Next()
			}

			token, err := mintToken(cfg, cfg.Binding(ctx))
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, token)
			ctx.Locals(cfg.ContextKey+"_field", cfg.FormField)
			ctx.Locals(cfg.ContextKey+"_header", cfg.Header)
			if !cfg.DisableHelpers {
				ctx.LocalsMerge(cfg.HelpersKey, TemplateHelpers(ctx, cfg.ContextKey))
			}

			if slices.Contains(cfg.SafeMethods, strings.ToUpper(ctx.Method())) {
				return ctx.Next()
			}

			if err := validate(ctx, cfg); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			return ctx.Next()
		}
	}
}

// mintToken produces nonce.timestamp.signature, each part base64url encoded.
// The binding participates in the signature but never travels in the token.
func mintToken(cfg Config, binding string) (string, error) {
	if len(cfg.Secret) == 0 {
		return "", ErrSecretMissing
	}

	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("csrf: nonce generation failed: %w", err)
	}

	ts := strconv.FormatInt(time.Now().UTC().Unix(), 10)
	sig := sign(cfg.Secret, nonce, ts, binding)

	return strings.Join([]string{
		base64.RawURLEncoding.EncodeToString(nonce),
		base64.RawURLEncoding.EncodeToString([]byte(ts)),
		base64.RawURLEncoding.EncodeToString(sig),
	}, "."), nil
}

func validate(ctx router.Context, cfg Config) error {
	received := extract(ctx, cfg)
	if received == "" {
		return ErrTokenMissing
	}

	nonce, ts, sig, err := splitToken(received)
	if err != nil {
		return err
	}

	if !hmac.Equal(sig, sign(cfg.Secret, nonce, ts, cfg.Binding(ctx))) {
		return ErrTokenInvalid
	}

	issued, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrTokenInvalid
	}

	if time.Now().UTC().After(time.Unix(issued, 0).Add(cfg.TTL)) {
		return ErrTokenExpired
	}

	return nil
}

func sign(secret, nonce []byte, ts, binding string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(nonce)
	mac.Write([]byte{0})
	mac.Write([]byte(ts))
	mac.Write([]byte{0})
	mac.Write([]byte(binding))
	return mac.Sum(nil)
}

func splitToken(token string) (nonce []byte, ts string, sig []byte, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, "", nil, ErrTokenInvalid
	}

	if nonce, err = base64.RawURLEncoding.DecodeString(parts[0]); err != nil {
		return nil, "", nil, ErrTokenInvalid
	}

	rawTS, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, "", nil, ErrTokenInvalid
	}

	if sig, err = base64.RawURLEncoding.DecodeString(parts[2]); err != nil {
		return nil, "", nil, ErrTokenInvalid
	}

	return nonce, string(rawTS), sig, nil
}

func extract(ctx router.Context, cfg Config) string {
	if v := ctx.FormValue(cfg.FormField); v != "" {
		return v
	}
	return ctx.GetString(cfg.Header, "")
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if len(cfg.Secret) > 0 && len(cfg.Secret) < minSecretLength {
		panic(fmt.Errorf("csrf: secret must be at least %d bytes, got %d", minSecretLength, len(cfg.Secret)))
	}

	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}

	if cfg.Binding == nil {
		cfg.Binding = CookieBinding(sessionware.DefaultCookieName)
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormField == "" {
		cfg.FormField = DefaultFormField
	}

	if cfg.Header == "" {
		cfg.Header = DefaultHeader
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = defaultSafeMethods
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	if cfg.HelpersKey == "" {
		cfg.HelpersKey = DefaultHelpersKey
	}

	return cfg
}

func defaultErrorHandler(ctx router.Context, err error) error {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return ctx.Status(router.StatusBadRequest).SendString("CSRF token missing")
	case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrTokenExpired):
		return ctx.Status(router.StatusForbidden).SendString("CSRF validation failed")
	default:
		return ctx.Status(router.StatusInternalServerError).SendString("CSRF configuration error")
	}
}

// TemplateHelpers builds the view helper map from the token published to the
// request locals: the raw token, a ready-made hidden input, a meta tag for
// script consumers, and the header name.
func TemplateHelpers(ctx router.Context, tokenKey string) map[string]any {
	if tokenKey == "" {
		tokenKey = DefaultContextKey
	}

	token, _ := ctx.Locals(tokenKey).(string)

	field := DefaultFormField
	if v, ok := ctx.Locals(tokenKey + "_field").(string); ok && v != "" {
		field = v
	}

	header := DefaultHeader
	if v, ok := ctx.Locals(tokenKey + "_header").(string); ok && v != "" {
		header = v
	}

	return map[string]any{
		"csrf_token":       token,
		"csrf_field":       `<input type="hidden" name="` + field + `" value="` + token + `">`,
		"csrf_meta":        `<meta name="csrf-token" content="` + token + `">`,
		"csrf_header_name": header,
	}
}
