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

	httpapi "github.com/aussiebroadwan/gatekeep/internal/gatekeep/http"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/notify"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/service"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store"
	redisdrv "github.com/aussiebroadwan/gatekeep/internal/gatekeep/store/drivers/redis"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeep/pkg/jwtx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application owns every long-lived dependency of the gatekeep service.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	rdb        *redis.Client // nil unless CHALLENGE_BACKEND=redis
	challenges store.Challenges
	pinger     httpapi.Pinger // challenge store probe, set for redis only
	tokens     *jwtx.HS256
	hasher     cryptox.PasswordHasher
	dispatcher notify.Dispatcher

	enrollmentService   *service.EnrollmentService
	gateService         *service.GateService
	ledgerService       *service.LedgerService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	return NewWithLogger(cfg, slogx.New(slogx.Config{
		Service: "gatekeep",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	}))
}

// NewWithLogger is New with a caller supplied logger.
func NewWithLogger(cfg Config, logger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app := &Application{cfg: cfg, logger: logger}

	if err := app.initSecrets(); err != nil {
		return nil, err
	}
	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initChallenges(); err != nil {
		_ = app.closeStores()
		return nil, err
	}
	if err := app.initDispatcher(); err != nil {
		_ = app.closeStores()
		return nil, err
	}

	app.initServices()

	if err := app.seed(); err != nil {
		_ = app.closeStores()
		return nil, err
	}

	app.initHTTP()
	return app, nil
}

// Handler exposes the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("gatekeep starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"challenge_backend", app.cfg.ChallengeBackend,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.closeStores()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops housekeeping and closes the
// stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatekeep...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("gatekeep stopped")
	return nil
}

// Close releases the stores without touching the server or housekeeping.
// It is for callers that serve Handler themselves instead of calling Run.
func (app *Application) Close() error {
	return app.closeStores()
}

func (app *Application) closeStores() error {
	var errs []error
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initSecrets loads the password pepper and the token signing key,
// creating both on first start.
func (app *Application) initSecrets() error {
	pepper, err := cryptox.LoadOrCreateSecret(app.cfg.PepperFile, cryptox.SecretSize)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.PasswordHasher{Pepper: pepper}

	key, err := cryptox.LoadOrCreateSecret(app.cfg.TokenKeyFile, cryptox.SecretSize)
	if err != nil {
		return fmt.Errorf("failed to load token key: %w", err)
	}
	tokens, err := jwtx.NewHS256(key, app.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("failed to initialize token signer: %w", err)
	}
	app.tokens = tokens
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		app.db = nil
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

func (app *Application) initChallenges() error {
	if app.cfg.ChallengeBackend != BackendRedis {
		app.challenges = app.db.Challenges()
		return nil
	}

	app.rdb = redis.NewClient(&redis.Options{
		Addr:     app.cfg.Redis.Addr,
		Password: app.cfg.Redis.Password,
		DB:       app.cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis at %s: %w", app.cfg.Redis.Addr, err)
	}

	rc := redisdrv.NewChallenges(app.rdb, app.cfg.Redis.Prefix, app.cfg.ChallengeRetention)
	app.challenges = rc
	app.pinger = rc
	app.logger.Info("redis challenge store enabled", "addr", app.cfg.Redis.Addr, "prefix", app.cfg.Redis.Prefix)
	return nil
}

func (app *Application) initDispatcher() error {
	if !app.cfg.SMTP.Enabled() {
		app.logger.Warn("SMTP_HOST not set, email codes will only be logged")
		app.dispatcher = notify.LogDispatcher{Logger: app.logger}
		return nil
	}

	d, err := notify.NewSMTPDispatcher(app.cfg.SMTP.notify(), app.cfg.EmailCodeTTL, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize smtp dispatcher: %w", err)
	}
	app.dispatcher = d
	return nil
}

func (app *Application) initServices() {
	app.ledgerService = &service.LedgerService{Store: app.db}

	app.enrollmentService = &service.EnrollmentService{
		Store:         app.db,
		Challenges:    app.challenges,
		Dispatcher:    app.dispatcher,
		Issuer:        app.cfg.Issuer,
		EnrollmentTTL: app.cfg.EnrollmentTTL,
		EmailCodeTTL:  app.cfg.EmailCodeTTL,
	}

	app.gateService = &service.GateService{
		Store:        app.db,
		Challenges:   app.challenges,
		Dispatcher:   app.dispatcher,
		Ledger:       app.ledgerService,
		Hasher:       app.hasher,
		Tokens:       app.tokens,
		ChallengeTTL: app.cfg.LoginChallengeTTL,
		SessionTTL:   app.cfg.SessionTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.challenges,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.ChallengeRetention,
	)
}

func (app *Application) seed() error {
	if app.cfg.SeedEmail == "" {
		return nil
	}

	ctx := slogx.WithContext(context.Background(), app.logger)
	created, err := service.SeedUser(ctx, app.db, app.hasher, app.cfg.SeedEmail, app.cfg.SeedPassword)
	if err != nil {
		return fmt.Errorf("failed to seed user: %w", err)
	}
	if created {
		app.logger.Info("seeded initial user", "email", notify.MaskEmail(app.cfg.SeedEmail))
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(jwtx.SessionVerifier{HS256: app.tokens}, BuildVersion, app.logger)

	router.DB = app.db
	router.ChallengeStore = app.pinger
	router.Limits = app.cfg.Limits()
	router.EnrollmentService = app.enrollmentService
	router.GateService = app.gateService
	router.LedgerService = app.ledgerService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              ":" + app.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
