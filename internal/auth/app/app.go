package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sellerhub/authcore/internal/auth/domain"
	"github.com/sellerhub/authcore/internal/auth/service"
	"github.com/sellerhub/authcore/internal/auth/store"
	"github.com/sellerhub/authcore/internal/auth/store/drivers/postgres"
	"github.com/sellerhub/authcore/internal/auth/store/drivers/sqlite"
	"github.com/sellerhub/authcore/pkg/slogx"
)

// Application wires the auth engine together: config, logging, the refresh
// token store and the service facade, plus the background sweep of expired
// token records.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db  store.RefreshTokens
	svc *service.Service

	sweepStop chan struct{}
	sweepWG   sync.WaitGroup
}

// Hooks are the optional authorization strategies supplied by the host
// process. Each is only installed when its feature flag is enabled.
type Hooks struct {
	CustomPermission service.Hook
	TemporaryRole    service.Hook
}

// New builds an Application from config. The caller supplies the user
// repository and any optional hooks; everything else is constructed here.
func New(cfg Config, users service.UserRepository, hooks Hooks) (*Application, error) {
	if cfg.HousekeepingInterval <= 0 {
		cfg.HousekeepingInterval = time.Hour
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authcore",
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		sweepStop: make(chan struct{}),
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}

	accessKeys, err := cfg.AccessKeyring()
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("access keyring: %w", err)
	}
	refreshKeys, err := cfg.RefreshKeyring()
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("refresh keyring: %w", err)
	}

	hierarchy, err := domain.ParseRoleHierarchy(cfg.RoleHierarchy)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("role hierarchy: %w", err)
	}

	var audit service.AuditSink
	if cfg.RoleLoggingEnabled {
		audit = service.NewSlogAuditSink(app.logger)
	}

	var customPermission, temporaryRole service.Hook
	if cfg.CustomPermissionsEnabled {
		customPermission = hooks.CustomPermission
	}
	if cfg.TemporaryRolesEnabled {
		temporaryRole = hooks.TemporaryRole
	}

	app.svc = service.New(service.Options{
		AccessKeys:   accessKeys,
		RefreshKeys:  refreshKeys,
		Users:        users,
		Store:        app.db,
		Issuer:       cfg.Issuer,
		AccessTTL:    cfg.AccessTTL,
		RefreshTTL:   cfg.RefreshTTL,
		BaselineRole: cfg.BaselineRole,
		Credentials: service.CredentialOptions{
			EmailVerificationRequired: cfg.EmailVerificationRequired,
			TermsAcceptanceRequired:   cfg.TermsAcceptanceRequired,
			Throttle: service.ThrottleConfig{
				AttemptsPerWindow: cfg.LoginAttemptsPerMinute,
				Window:            time.Minute,
				Burst:             cfg.LoginBurst,
			},
		},
		Authorizer: service.AuthorizerOptions{
			Hierarchy:            hierarchy,
			AdminRoles:           cfg.AdminRoles,
			CustomPermissionHook: customPermission,
			TemporaryRoleHook:    temporaryRole,
			Audit:                audit,
		},
	})

	return app, nil
}

// Service exposes the wired facade.
func (app *Application) Service() *service.Service {
	return app.svc
}

// Run starts the periodic sweep of expired refresh token records and blocks
// until Shutdown is called.
func (app *Application) Run() {
	app.sweepWG.Add(1)
	go func() {
		defer app.sweepWG.Done()

		ticker := time.NewTicker(app.cfg.HousekeepingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				n, err := app.svc.Sweep(context.Background())
				if err != nil {
					app.logger.Error("expired token sweep failed", slog.Any("err", err))
					continue
				}
				if n > 0 {
					app.logger.Info("expired tokens swept", slog.Int("count", n))
				}
			case <-app.sweepStop:
				return
			}
		}
	}()

	app.logger.Info("auth engine started",
		slog.String("issuer", app.cfg.Issuer),
		slog.Duration("access_ttl", app.cfg.AccessTTL),
		slog.Duration("refresh_ttl", app.cfg.RefreshTTL),
	)

	app.sweepWG.Wait()
}

// Shutdown stops the sweep loop and closes the store.
func (app *Application) Shutdown() error {
	close(app.sweepStop)
	app.sweepWG.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", slog.Any("err", err))
		return err
	}

	app.logger.Info("auth engine stopped")
	return nil
}

// initStore opens the refresh token store: Postgres when a DSN is configured,
// SQLite otherwise.
func (app *Application) initStore() error {
	if app.cfg.PostgresDSN != "" {
		db, err := postgres.Open(app.cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("failed to open postgres store: %w", err)
		}
		if err := db.ApplySchema(context.Background()); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply postgres schema: %w", err)
		}
		app.db = db
		app.logger.Info("refresh token store ready", slog.String("driver", "postgres"))
		return nil
	}

	// The driver appends its own session pragmas (busy timeout, WAL).
	db, err := sqlite.NewStore(fmt.Sprintf("file:%s", app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to open sqlite store: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.db = db
	app.logger.Info("refresh token store ready", slog.String("driver", "sqlite"))
	return nil
}
