package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/roomstay/internal/auth/http"
	"github.com/aussiebroadwan/roomstay/internal/auth/notify"
	"github.com/aussiebroadwan/roomstay/internal/auth/service"
	"github.com/aussiebroadwan/roomstay/internal/auth/store"
	"github.com/aussiebroadwan/roomstay/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/roomstay/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/roomstay/pkg/cryptox"
	"github.com/aussiebroadwan/roomstay/pkg/jwtx"
	"github.com/aussiebroadwan/roomstay/pkg/slogx"
)

const (
	// BuildVersion is overridden at build time via ldflags.
	BuildVersion = "v0.1.0"

	connectTimeout = 10 * time.Second
)

// Application owns the auth service and everything it depends on.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	hasher     *cryptox.PasswordHasher
	codec      *jwtx.Codec
	dispatcher *notify.Dispatcher

	revocationService   *service.RevocationService
	sessionService      *service.SessionService
	verificationService *service.VerificationService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New builds the application. Nothing is started until Run.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "roomstay-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initCrypto(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initNotifier(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts background workers and the HTTP server, then blocks until a
// shutdown signal or a server failure.
func (app *Application) Run() error {
	if err := app.housekeepingService.Start(); err != nil {
		return fmt.Errorf("failed to start housekeeping: %w", err)
	}
	app.dispatcher.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig.String())
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops accepting requests, flushes queued notifications, stops
// the sweeps and closes the database, all within the grace period.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.dispatcher.Stop(ctx); err != nil {
		app.logger.Warn("notification queue not drained", "error", err)
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.Database.Driver {
	case DriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		db, err = postgres.NewStore(ctx, app.cfg.Database.DSN)
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.Database.File)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied", "driver", app.cfg.Database.Driver)
	return nil
}

func (app *Application) initCrypto() error {
	pepper, err := cryptox.LoadOrGeneratePepper(app.cfg.Auth.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewPasswordHasher(pepper)

	secret := app.cfg.Auth.TokenSecret
	if secret == "" {
		secret, err = cryptox.GenerateToken(cryptox.TokenSize512)
		if err != nil {
			return fmt.Errorf("failed to generate token secret: %w", err)
		}
		app.logger.Warn("AUTH_TOKEN_SECRET not set, using an ephemeral secret; sessions end on restart")
	}

	app.codec, err = jwtx.NewHS256Codec([]byte(secret), jwtx.CodecOptions{
		Issuer: app.cfg.Auth.Issuer,
		TTL:    app.cfg.Auth.TokenTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}
	return nil
}

func (app *Application) initNotifier() error {
	var sender service.Notifier
	switch app.cfg.Notify.Driver {
	case NotifySendGrid:
		sg, err := notify.NewSendGridNotifier(app.cfg.SendGrid)
		if err != nil {
			return fmt.Errorf("failed to create sendgrid notifier: %w", err)
		}
		sender = sg
	default:
		sender = notify.LogNotifier{Logger: app.logger}
	}

	app.dispatcher = notify.NewDispatcher(sender, app.logger, notify.DispatcherConfig{
		QueueSize:     app.cfg.Notify.QueueSize,
		Workers:       app.cfg.Notify.Workers,
		SendTimeout:   app.cfg.Notify.SendTimeout,
		RatePerSecond: app.cfg.Notify.RatePerSecond,
	})
	app.logger.Info("notifier configured", "driver", app.cfg.Notify.Driver)
	return nil
}

func (app *Application) initServices() {
	app.revocationService = &service.RevocationService{Store: app.db}

	app.sessionService = &service.SessionService{
		Codec:         app.codec,
		Revocations:   app.revocationService,
		Authenticator: &service.AccountAuthenticator{Store: app.db, Hasher: app.hasher},
	}

	app.verificationService = &service.VerificationService{
		Store:    app.db,
		Hasher:   app.hasher,
		Notifier: app.dispatcher,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.revocationService,
		app.verificationService,
		app.logger,
		app.cfg.Housekeeping.TokenSchedule,
		app.cfg.Housekeeping.VerificationSchedule,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)
	router.Sessions = app.sessionService
	router.Verifications = app.verificationService
	router.Housekeeping = app.housekeepingService
	router.Limits = app.cfg.RateLimits
	router.CORSOrigins = app.cfg.CORSAllowedOrigins
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
