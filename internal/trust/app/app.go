package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/quorumsec/trustd/internal/trust/domain"
	"github.com/quorumsec/trustd/internal/trust/policy"
	"github.com/quorumsec/trustd/internal/trust/service"
	"github.com/quorumsec/trustd/internal/trust/store/drivers/sqlite"
	"github.com/quorumsec/trustd/internal/trust/store/memory"
	"github.com/quorumsec/trustd/pkg/jwtx"
	"github.com/quorumsec/trustd/pkg/oidcx"
	"github.com/quorumsec/trustd/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application wires the trust subsystem together: signing keys, stores, the
// provider client, the policy engine and the background housekeeping worker.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         *sqlite.Store
	keyManager *jwtx.KeyManager

	TokenService *service.TokenService
	LoginService *service.LoginService // nil when no provider is configured
	AuthzService *service.AuthzService
	housekeeping *service.HousekeepingService
}

// New validates the config and initializes every subsystem. OIDC discovery
// runs here; an unreachable provider fails startup rather than first login.
func New(ctx context.Context, cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "trustd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keyManager, err := InitKeys(cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keyManager = keyManager

	if err := app.initServices(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	return app, nil
}

// Run starts the background workers and blocks until a shutdown signal.
func (app *Application) Run() error {
	app.housekeeping.Start()
	app.logger.Info("trustd started",
		"version", BuildVersion,
		"issuer", app.cfg.Issuer,
		"policy_mode", app.cfg.PolicyMode,
		"login_enabled", app.LoginService != nil,
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdown
	app.logger.Info("shutdown signal received", "signal", sig)
	return app.Shutdown()
}

// Shutdown stops the workers and closes the database.
func (app *Application) Shutdown() error {
	app.housekeeping.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	app.logger.Info("trustd stopped")
	return nil
}

func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	app.db = db
	app.logger.Info("database ready", "file", app.cfg.DatabaseFile)
	return nil
}

func (app *Application) initServices(ctx context.Context) error {
	users := memory.NewUsers()

	app.TokenService = &service.TokenService{
		KeyManager: app.keyManager,
		Blacklist:  app.db.Blacklist(),
		Users:      users,
		Issuer:     app.cfg.Issuer,
		Audience:   app.cfg.Audience,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
		Leeway:     app.cfg.Leeway,

		DisableRotation: !app.cfg.TokenRotation,
	}

	engine, err := app.initPolicyEngine()
	if err != nil {
		return err
	}
	app.AuthzService = &service.AuthzService{
		Engine:      engine,
		Audit:       policy.NewSlogAuditSink(app.logger),
		EvalTimeout: app.cfg.PolicyTimeout,
	}

	app.housekeeping = service.NewHousekeepingService(
		app.db.Blacklist(),
		app.db.Sessions(),
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	if app.cfg.OIDCIssuerURL == "" {
		app.logger.Info("no identity provider configured, login flow disabled")
		return nil
	}

	provider, err := oidcx.NewClient(ctx, oidcx.Config{
		IssuerURL:    app.cfg.OIDCIssuerURL,
		ClientID:     app.cfg.OIDCClientID,
		ClientSecret: app.cfg.OIDCClientSecret,
		RedirectURL:  app.cfg.OIDCRedirectURL,
		Scopes:       app.cfg.OIDCScopes,
		RolesClaim:   app.cfg.OIDCRolesClaim,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize identity provider client: %w", err)
	}

	mapper, err := service.NewRoleMapper(app.cfg.RoleMappings, domain.Role(app.cfg.DefaultRole))
	if err != nil {
		return err
	}

	app.LoginService = &service.LoginService{
		Provider:    provider,
		Sessions:    app.db.Sessions(),
		Roles:       mapper,
		Provisioner: &service.Provisioner{Users: users},
		Tokens:      app.TokenService,
		SessionTTL:  app.cfg.SessionTTL,
	}
	return nil
}

func (app *Application) initPolicyEngine() (policy.Engine, error) {
	switch app.cfg.PolicyMode {
	case "remote":
		return policy.NewHTTPEngine(app.cfg.PolicyURL,
			policy.WithEvalTimeout(app.cfg.PolicyTimeout)), nil
	case "cedar":
		src, err := os.ReadFile(app.cfg.CedarPolicyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read cedar policy file: %w", err)
		}
		return policy.NewCedarEngineFromSource(app.cfg.CedarPolicyFile, src)
	default:
		return nil, nil
	}
}
