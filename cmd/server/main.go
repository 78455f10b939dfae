package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	"github.com/parkmoor/motors"
	"github.com/parkmoor/motors/activitymap"
	"github.com/parkmoor/motors/config"
	"github.com/parkmoor/motors/middleware/csrf"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config   *config.Config
	bunDB    *bun.DB
	repo     motors.RepositoryManager
	auth     motors.Authenticator
	auther   motors.HTTPAuthenticator
	flash    *motors.FlashQueue
	nav      *motors.Navigation
	activity motors.ActivitySink
	srv      router.Server[*fiber.App]
	logger   *glog.BaseLogger
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Debug),
		glog.WithName("motors"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		lgr.Error("unable to load configuration", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		lgr.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		lgr.Error("unable to initialize persistence", "error", err)
		os.Exit(1)
	}

	if err := WithAuth(ctx, app); err != nil {
		lgr.Error("unable to initialize auth", "error", err)
		os.Exit(1)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		lgr.Error("unable to initialize http server", "error", err)
		os.Exit(1)
	}

	app.srv.Serve(cfg.GetApp().GetAddress())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.config.GetPersistence().GetDSN())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*motors.Account)(nil))
	persistence.RegisterModel((*motors.Classification)(nil))
	persistence.RegisterModel((*motors.Vehicle)(nil))

	client, err := persistence.New(app.config.GetPersistence(), db, sqlitedialect.New())
	if err != nil {
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(motors.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	client.RegisterFixtures(motors.GetFixturesFS())

	if err := client.Seed(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = motors.NewRepositoryManager(app.bunDB)

	return app.repo.Validate()
}

func WithAuth(ctx context.Context, app *App) error {
	provider := motors.NewAccountProvider(app.repo.Accounts())
	provider.WithLogger(app.GetLogger("auth:prv"))

	audit := app.GetLogger("audit")
	app.activity = motors.ActivitySinkFunc(func(ctx context.Context, event motors.ActivityEvent) error {
		record := activitymap.Normalize(event)
		audit.Info("activity",
			"verb", record.Verb,
			"actor", record.ActorID,
			"object", record.ObjectID,
			"channel", record.Channel,
		)
		return nil
	})
	provider.WithActivitySink(app.activity)

	authenticator := motors.NewAuthenticator(provider, app.config)
	authenticator.WithLogger(app.GetLogger("auth"))

	if legacy := app.config.GetLegacyKeys(); len(legacy) > 0 {
		keys := make([][]byte, 0, len(legacy))
		for _, k := range legacy {
			keys = append(keys, []byte(k))
		}
		authenticator.WithTokenService(motors.NewTokenService(
			[]byte(app.config.GetSigningKey()),
			app.config.GetTokenExpiration(),
			app.config.GetIssuer(),
			app.config.GetAudience(),
			app.GetLogger("auth:tokens"),
			motors.WithLegacyKeys(keys...),
		))
	}

	app.auth = authenticator

	auther, err := motors.NewHTTPAuthenticator(authenticator, app.config)
	if err != nil {
		return err
	}

	auther.WithLogger(app.GetLogger("auth:http"))

	app.flash = motors.NewFlashQueue(
		motors.WithFlashSecure(app.config.IsProduction()),
	)
	auther.WithFlashQueue(app.flash)

	app.auther = auther
	app.nav = motors.NewNavigation(app.repo).WithLogger(app.GetLogger("nav"))

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	views, err := fs.Sub(motors.GetViewsFS(), "views")
	if err != nil {
		return err
	}

	engine := django.NewFileSystem(http.FS(views), ".html")
	for name, fn := range motors.TemplateHelpers() {
		engine.AddFunc(name, fn)
	}

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	srv.Router().Use(app.auther.WebSession())
	csrfSecret := sha256.Sum256([]byte("csrf:" + app.config.GetSigningKey()))
	srv.Router().Use(csrf.New(csrf.Config{
		Secret:  csrfSecret[:],
		Binding: csrf.CookieBinding(app.config.GetContextKey()),
	}))
	srv.Router().Use(app.flash.FlashMessages())
	srv.Router().Use(app.nav.Middleware())

	csrf.RegisterRoutes(srv.Router())

	srv.Router().Get("/", func(ctx router.Context) error {
		return ctx.Render("index", motors.MergeTemplateData(ctx, router.ViewContext{
			"title": "Home",
		}))
	}).SetName("home.get")

	motors.RegisterAccountRoutes(
		srv.Router(),
		motors.WithControllerRepo(app.repo),
		motors.WithControllerAuther(app.auther),
		motors.WithControllerLogger(app.GetLogger("ctrl:account")),
		motors.WithControllerFlash(app.flash),
		motors.WithControllerActivity(app.activity),
	)

	motors.RegisterInventoryRoutes(
		srv.Router(),
		motors.WithInventoryRepo(app.repo),
		motors.WithInventoryAuther(app.auther),
		motors.WithInventoryLogger(app.GetLogger("ctrl:inventory")),
		motors.WithInventoryFlash(app.flash),
		motors.WithInventoryNav(app.nav),
	)

	public, err := fs.Sub(motors.GetPublicFS(), "public")
	if err != nil {
		return err
	}

	srv.Router().Static("/", ".", router.Static{
		FS:   public,
		Root: ".",
	})

	app.srv = srv

	return nil
}

func WaitExitSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}
