package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	httpapi "github.com/dreamscape-events/dreamscape/internal/dreamscape/http"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/notify"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/service"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store/drivers/mongo"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store/drivers/sqlite"
	"github.com/dreamscape-events/dreamscape/pkg/cryptox"
	"github.com/dreamscape-events/dreamscape/pkg/httpx"
	"github.com/dreamscape-events/dreamscape/pkg/jwtx"
	"github.com/dreamscape-events/dreamscape/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the store, services and HTTP server together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	keyManager *jwtx.KeyManager
	notifier   notify.Publisher

	identityService *service.IdentityService
	sessionService  *service.SessionService
	eventService    *service.EventService
	reconciler      *service.StatusReconciler

	server *http.Server
	router *httpapi.Router

	closeOnce sync.Once
	closeErr  error
}

// closeTimeout bounds closing the database once the server is down.
const closeTimeout = 5 * time.Second

// New creates an Application with every dependency initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "dreamscape",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	if err := httpx.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	keyManager, err := InitSessionKeys(ctx, cfg, app.db, app.logger)
	if err != nil {
		app.closeDatabase()
		return nil, err
	}
	app.keyManager = keyManager

	if err := app.initNotifier(); err != nil {
		app.closeDatabase()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.reconciler.Start()

	app.logger.Info("dreamscape starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.StoreDriver,
		"google", app.cfg.GoogleEnabled(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		closeErr := app.close()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return closeErr
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests within the grace period, then releases
// everything else through close.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down dreamscape...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	return app.close()
}

// close stops the reconciler and closes the notifier and the database. It
// runs once however the server stopped; later calls return the first result.
func (app *Application) close() error {
	app.closeOnce.Do(func() {
		app.reconciler.Stop()

		if err := app.notifier.Close(); err != nil {
			app.logger.Error("error closing notifier", "error", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := app.db.Close(ctx); err != nil {
			app.logger.Error("error closing database", "error", err)
			app.closeErr = err
			return
		}

		app.logger.Info("dreamscape stopped")
	})
	return app.closeErr
}

// initDatabase opens the configured store and applies migrations.
func (app *Application) initDatabase() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		db  store.Store
		err error
	)
	switch app.cfg.StoreDriver {
	case DriverMongo:
		db, err = mongo.NewStore(ctx, app.cfg.MongoURI, app.cfg.MongoDatabase, mongo.DefaultOptions)
	default:
		db, err = sqlite.NewStore(app.cfg.DatabaseFile)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize %s store: %w", app.cfg.StoreDriver, err)
	}
	app.db = db

	if err := db.ApplyMigrations(ctx); err != nil {
		app.closeDatabase()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "store", app.cfg.StoreDriver)
	return nil
}

func (app *Application) closeDatabase() {
	if err := app.db.Close(context.Background()); err != nil {
		app.logger.Error("error closing database", "error", err)
	}
}

// initNotifier connects to RabbitMQ when configured and otherwise logs
// notifications.
func (app *Application) initNotifier() error {
	if app.cfg.RabbitMQURL == "" {
		app.notifier = &notify.LogPublisher{Logger: app.logger}
		return nil
	}

	p, err := notify.DialAMQP(app.cfg.RabbitMQURL, app.cfg.RabbitMQExchange)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	app.notifier = p

	app.logger.Info("event notifications enabled", "exchange", app.cfg.RabbitMQExchange)
	return nil
}

func (app *Application) initServices() {
	app.identityService = &service.IdentityService{Store: app.db}

	app.sessionService = &service.SessionService{
		Store:      app.db,
		KeyManager: app.keyManager,
		Issuer:     app.cfg.SessionIssuer,
		TTL:        app.cfg.SessionTTL,
	}
	if app.cfg.GoogleEnabled() {
		app.sessionService.Google = service.NewGoogleConfig(
			app.cfg.GoogleClientID,
			app.cfg.GoogleClientSecret,
			app.cfg.GoogleRedirectURL,
		)
	}

	app.eventService = &service.EventService{
		Store:    app.db,
		Notifier: app.notifier,
	}

	app.reconciler = service.NewStatusReconciler(app.db, app.logger, app.cfg.ReconcileInterval)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.keyManager, BuildVersion, app.db, app.logger)
	router.Identity = app.identityService
	router.Sessions = app.sessionService
	router.Events = app.eventService
	router.SecureCookies = app.cfg.SessionCookieSecure
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
