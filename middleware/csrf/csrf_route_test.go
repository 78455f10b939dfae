package csrf

import (
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTokenRouteReturnsTokenMetadata(t *testing.T) {
	handler := tokenHandler(RouteConfig{ContextKey: DefaultContextKey})

	ctx := router.NewMockContext()
	ctx.LocalsMock[DefaultContextKey] = "tok-123"
	ctx.LocalsMock[DefaultContextKey+"_field"] = "_token"
	ctx.LocalsMock[DefaultContextKey+"_header"] = "X-CSRF-Token"
	ctx.On("SetHeader", "Cache-Control", "no-store, max-age=0").Return(ctx)

	var payload map[string]string
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(map[string]string)
	}).Return(nil).Once()

	require.NoError(t, handler(ctx))
	require.Equal(t, "tok-123", payload["token"])
	require.Equal(t, "_token", payload["field_name"])
	require.Equal(t, "X-CSRF-Token", payload["header_name"])
}

func TestTokenRouteWithoutMiddleware(t *testing.T) {
	handler := tokenHandler(RouteConfig{ContextKey: DefaultContextKey})

	ctx := router.NewMockContext()
	ctx.On("JSON", router.StatusNotFound, mock.Anything).Return(nil).Once()

	require.NoError(t, handler(ctx))
}

func TestTokenRouteFallsBackToDefaultNames(t *testing.T) {
	handler := tokenHandler(RouteConfig{ContextKey: "custom_token"})

	ctx := router.NewMockContext()
	ctx.LocalsMock["custom_token"] = "tok-456"
	ctx.On("SetHeader", mock.Anything, mock.Anything).Return(ctx)

	var payload map[string]string
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(map[string]string)
	}).Return(nil).Once()

	require.NoError(t, handler(ctx))
	require.Equal(t, DefaultFormField, payload["field_name"])
	require.Equal(t, DefaultHeader, payload["header_name"])
}
