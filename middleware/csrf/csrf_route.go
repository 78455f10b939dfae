package csrf

import "github.com/goliatone/go-router"

// RouteConfig controls the token bootstrap endpoint.
type RouteConfig struct {
	// Path is where the endpoint mounts. Defaults to /csrf.
	Path string
	// ContextKey is where the middleware published the token.
	ContextKey string
	// RouteName names the registered route.
	RouteName string
}

const (
	defaultRoutePath = "/csrf"
	defaultRouteName = "csrf-token.get"
)

// RegisterRoutes mounts a GET endpoint returning the current token plus the
// form field and header names, for scripts that build requests by hand. The
// middleware must run before it so a token is present in the locals.
func RegisterRoutes[T any](app router.Router[T], cfg ...RouteConfig) {
	conf := RouteConfig{
		Path:       defaultRoutePath,
		ContextKey: DefaultContextKey,
		RouteName:  defaultRouteName,
	}

	if len(cfg) > 0 {
		if cfg[0].Path != "" {
			conf.Path = cfg[0].Path
		}
		if cfg[0].ContextKey != "" {
			conf.ContextKey = cfg[0].ContextKey
		}
		if cfg[0].RouteName != "" {
			conf.RouteName = cfg[0].RouteName
		}
	}

	app.Get(conf.Path, tokenHandler(conf)).SetName(conf.RouteName)
}

func tokenHandler(conf RouteConfig) router.HandlerFunc {
	return func(ctx router.Context) error {
		token, _ := ctx.Locals(conf.ContextKey).(string)
		if token == "" {
			return ctx.JSON(router.StatusNotFound, map[string]string{
				"error": ErrTokenMissing.Error(),
			})
		}

		ctx.SetHeader("Cache-Control", "no-store, max-age=0")

		field := DefaultFormField
		if v, ok := ctx.Locals(conf.ContextKey + "_field").(string); ok && v != "" {
			field = v
		}

		header := DefaultHeader
		if v, ok := ctx.Locals(conf.ContextKey + "_header").(string); ok && v != "" {
			header = v
		}

		return ctx.JSON(router.StatusOK, map[string]string{
			"token":       token,
			"field_name":  field,
			"header_name": header,
		})
	}
}
