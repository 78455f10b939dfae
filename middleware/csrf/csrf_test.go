package csrf

import (
	"testing"
	"time"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testSecret() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func newFormContext(method string) *router.MockContext {
	ctx := router.NewMockContext()
	ctx.On("Method").Return(method)
	ctx.On("IP").Return("203.0.113.9")
	ctx.On("Locals", DefaultContextKey, mock.Anything).Return(nil)
	ctx.On("Locals", DefaultContextKey+"_field", mock.Anything).Return(nil)
	ctx.On("Locals", DefaultContextKey+"_header", mock.Anything).Return(nil)
	ctx.On("LocalsMerge", mock.Anything, mock.Anything).Return(map[string]any{}).Maybe()
	ctx.On("GetString", DefaultHeader, mock.Anything).Return("").Maybe()
	return ctx
}

func captureHandler(captured *error) router.ErrorHandler {
	return func(ctx router.Context, err error) error {
		*captured = err
		return err
	}
}

func TestTokenRoundTrip(t *testing.T) {
	handler := New(Config{Secret: testSecret()})(func(ctx router.Context) error { return nil })

	getCtx := newFormContext("GET")
	getCtx.CookiesM[DefaultContextKey] = ""
	require.NoError(t, handler(getCtx))

	token, ok := getCtx.LocalsMock[DefaultContextKey].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	postCtx := newFormContext("POST")
	postCtx.On("FormValue", DefaultFormField).Return(token)

	require.NoError(t, handler(postCtx))
	require.True(t, postCtx.NextCalled)
}

func TestTokenAcceptedFromHeader(t *testing.T) {
	handler := New(Config{Secret: testSecret()})(func(ctx router.Context) error { return nil })

	getCtx := newFormContext("GET")
	require.NoError(t, handler(getCtx))
	token := getCtx.LocalsMock[DefaultContextKey].(string)

	postCtx := router.NewMockContext()
	postCtx.On("Method").Return("POST")
	postCtx.On("IP").Return("203.0.113.9")
	postCtx.On("Locals", mock.Anything, mock.Anything).Return(nil).Maybe()
	postCtx.On("LocalsMerge", mock.Anything, mock.Anything).Return(map[string]any{}).Maybe()
	postCtx.On("FormValue", DefaultFormField).Return("")
	postCtx.On("GetString", DefaultHeader, mock.Anything).Return(token)

	require.NoError(t, handler(postCtx))
	require.True(t, postCtx.NextCalled)
}

func TestTokenBoundToSession(t *testing.T) {
	var captured error
	handler := New(Config{
		Secret:       testSecret(),
		ErrorHandler: captureHandler(&captured),
	})(func(ctx router.Context) error { return nil })

	getCtx := newFormContext("GET")
	getCtx.CookiesM["session"] = "session-of-browser-a"
	require.NoError(t, handler(getCtx))
	token := getCtx.LocalsMock[DefaultContextKey].(string)

	postCtx := newFormContext("POST")
	postCtx.CookiesM["session"] = "session-of-browser-b"
	postCtx.On("FormValue", DefaultFormField).Return(token)

	require.Error(t, handler(postCtx))
	require.ErrorIs(t, captured, ErrTokenInvalid)
}

func TestTamperedTokenRejected(t *testing.T) {
	var captured error
	handler := New(Config{
		Secret:       testSecret(),
		ErrorHandler: captureHandler(&captured),
	})(func(ctx router.Context) error { return nil })

	postCtx := newFormContext("POST")
	postCtx.On("FormValue", DefaultFormField).Return("not.a.token")

	require.Error(t, handler(postCtx))
	require.ErrorIs(t, captured, ErrTokenInvalid)
}

func TestMissingTokenRejected(t *testing.T) {
	var captured error
	handler := New(Config{
		Secret:       testSecret(),
		ErrorHandler: captureHandler(&captured),
	})(func(ctx router.Context) error { return nil })

	postCtx := newFormContext("POST")
	postCtx.On("FormValue", DefaultFormField).Return("")

	require.Error(t, handler(postCtx))
	require.ErrorIs(t, captured, ErrTokenMissing)
}

func TestExpiredTokenRejected(t *testing.T) {
	var captured error
	handler := New(Config{
		Secret:       testSecret(),
		TTL:          time.Nanosecond,
		ErrorHandler: captureHandler(&captured),
	})(func(ctx router.Context) error { return nil })

	getCtx := newFormContext("GET")
	require.NoError(t, handler(getCtx))
	token := getCtx.LocalsMock[DefaultContextKey].(string)

	time.Sleep(10 * time.Millisecond)

	postCtx := newFormContext("POST")
	postCtx.On("FormValue", DefaultFormField).Return(token)

	require.Error(t, handler(postCtx))
	require.ErrorIs(t, captured, ErrTokenExpired)
}

func TestMissingSecretFailsClosed(t *testing.T) {
	var captured error
	handler := New(Config{
		ErrorHandler: captureHandler(&captured),
	})(func(ctx router.Context) error { return nil })

	ctx := router.NewMockContext()
	ctx.On("IP").Return("203.0.113.9")

	require.Error(t, handler(ctx))
	require.ErrorIs(t, captured, ErrSecretMissing)
}

func TestShortSecretPanics(t *testing.T) {
	require.Panics(t, func() {
		handler := New(Config{Secret: []byte("short")})(func(ctx router.Context) error { return nil })
		_ = handler(newFormContext("GET"))
	})
}

func TestSkipBypassesProtection(t *testing.T) {
	handler := New(Config{
		Secret: testSecret(),
		Skip:   func(router.Context) bool { return true },
	})(func(ctx router.Context) error { return nil })

	ctx := router.NewMockContext()
	ctx.On("Method").Return("POST").Maybe()

	require.NoError(t, handler(ctx))
	require.True(t, ctx.NextCalled)
}

func TestTemplateHelpers(t *testing.T) {
	ctx := router.NewMockContext()
	ctx.LocalsMock[DefaultContextKey] = "tok-1"
	ctx.LocalsMock[DefaultContextKey+"_field"] = "_token"
	ctx.LocalsMock[DefaultContextKey+"_header"] = "X-CSRF-Token"

	helpers := TemplateHelpers(ctx, DefaultContextKey)
	require.Equal(t, "tok-1", helpers["csrf_token"])
	require.Equal(t, `<input type="hidden" name="_token" value="tok-1">`, helpers["csrf_field"])
	require.Equal(t, `<meta name="csrf-token" content="tok-1">`, helpers["csrf_meta"])
	require.Equal(t, "X-CSRF-Token", helpers["csrf_header_name"])
}
