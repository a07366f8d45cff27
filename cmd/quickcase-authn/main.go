package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quickcase/quickcase-authn/internal/audit"
	"github.com/quickcase/quickcase-authn/internal/auth"
	"github.com/quickcase/quickcase-authn/internal/claims"
	"github.com/quickcase/quickcase-authn/internal/cognito"
	"github.com/quickcase/quickcase-authn/internal/platform/config"
	"github.com/quickcase/quickcase-authn/internal/platform/database"
	"github.com/quickcase/quickcase-authn/internal/platform/server"
	"github.com/quickcase/quickcase-authn/internal/platform/telemetry"
	"github.com/quickcase/quickcase-authn/internal/rbac"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	telemetry.SetDefault(logger)

	slog.Info("quickcase-authn starting",
		"port", cfg.Server.Port,
		"provider", cfg.Auth.OIDC.Provider,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Database is optional; without it audit events are discarded.
	var pool *database.Pool
	if cfg.Database.URL != "" {
		slog.Info("connecting to database")
		p, err := database.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			slog.Warn("database connection failed, starting without audit", "error", err)
		} else {
			pool = p
			defer pool.Close()

			if err := database.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
			slog.Info("migrations complete")
		}
	}

	// Audit
	var auditLogger audit.Logger = audit.NopLogger{}
	var auditHandler *audit.Handler
	if pool != nil {
		auditStore := audit.NewStore()
		auditLogger = audit.NewAsyncLogger(pool, auditStore, audit.LoggerConfig{
			BufferSize:    cfg.Audit.BufferSize,
			BatchSize:     cfg.Audit.BatchSize,
			FlushInterval: time.Duration(cfg.Audit.FlushIntervalMs) * time.Millisecond,
		})
		auditHandler = audit.NewHandler(pool, auditStore)
		slog.Info("audit logger started")
	}
	defer auditLogger.Close()

	// Authentication
	extractor, names := buildExtractor(cfg.Auth.OIDC)
	validator := auth.NewTokenValidator(auth.TokenValidatorConfig{
		JWKSUrl:  cfg.Auth.OIDC.JWKSEndpoint(),
		Issuer:   cfg.Auth.OIDC.IssuerURL,
		Audience: cfg.Auth.OIDC.Audience,
		CacheTTL: cfg.Auth.OIDC.JWKSCacheTTL(),
	})

	authOpts := []auth.AuthenticatorOption{
		auth.WithProvider(cfg.Auth.OIDC.Provider),
		auth.WithAuditLogger(audit.AuthnRecorder{Logger: auditLogger}),
	}
	if cfg.Auth.DevMode {
		slog.Warn("running in dev mode, 'Bearer dev' authenticates as the dev user", "subject", cfg.Auth.Dev.Subject)
		authOpts = append(authOpts, auth.WithDevClaims(devClaims(names, cfg.Auth.Dev)))
	}
	authenticator := auth.NewAuthenticator(validator, extractor, authOpts...)

	// Authorization
	rbacEngine, err := buildEvaluator(ctx, cfg.RBAC)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server.Addr(), server.Dependencies{
		Pool:               pool,
		Authenticator:      authenticator,
		AuthHandler:        auth.NewHandler(),
		RBAC:               rbacEngine,
		AuditHandler:       auditHandler,
		RBACAuditLogger:    audit.AuthzRecorder{Logger: auditLogger},
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		ShutdownTimeout:    time.Duration(cfg.Server.ShutdownTimeoutSecs) * time.Second,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	if cfg.Auth.OIDC.IssuerURL != "" {
		g.Go(func() error {
			if err := validator.Prefetch(gctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("JWKS prefetch failed, keys load on first request", "error", err)
			}
			return nil
		})
	}

	slog.Info("server ready", "addr", cfg.Server.Addr(), "dev_mode", cfg.Auth.DevMode)
	return g.Wait()
}

// buildExtractor selects the claim mapping for the configured provider,
// applying any claim name overrides.
func buildExtractor(oidc config.OIDCConfig) (*claims.Extractor, claims.Names) {
	overrides := claimNames(oidc.Claims.Names)
	var extractor *claims.Extractor
	if oidc.Provider == "cognito" {
		extractor = cognito.NewExtractor(overrides)
	} else {
		extractor = claims.NewExtractor(claims.NewNames(overrides))
	}
	return extractor, extractor.Names()
}

func claimNames(c config.ClaimNamesConfig) claims.Names {
	return claims.Names{
		SubClaim:                 c.Sub,
		NameClaim:                c.Name,
		EmailClaim:               c.Email,
		RolesClaim:               c.Roles,
		OrganisationsClaim:       c.Organisations,
		DefaultJurisdictionClaim: c.DefaultJurisdiction,
		DefaultCaseTypeClaim:     c.DefaultCaseType,
		DefaultStateClaim:        c.DefaultState,
	}
}

// devClaims builds the claim set the dev token stands for, keyed by the
// active claim names so it flows through the regular extractor.
func devClaims(names claims.Names, dev config.DevUserConfig) map[string]any {
	c := map[string]any{
		names.Sub():   dev.Subject,
		names.Email(): dev.Email,
	}
	if dev.Roles != "" {
		c[names.Roles()] = dev.Roles
	}
	if dev.Organisations != "" {
		c[names.Organisations()] = dev.Organisations
	}
	return c
}

func buildEvaluator(ctx context.Context, cfg config.RBACConfig) (*rbac.Evaluator, error) {
	engine := rbac.NewEvaluator(rbac.WithRoleLoader(rbac.StaticRoles(cfg.Roles)))
	if err := engine.ReloadRoles(ctx); err != nil {
		return nil, fmt.Errorf("loading roles: %w", err)
	}
	slog.Info("roles loaded", "count", len(cfg.Roles))
	return engine, nil
}
