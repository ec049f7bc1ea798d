package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/revittco/mcpgate/internal/api"
	"github.com/revittco/mcpgate/internal/audit"
	"github.com/revittco/mcpgate/internal/auth"
	"github.com/revittco/mcpgate/internal/cache"
	"github.com/revittco/mcpgate/internal/config"
	"github.com/revittco/mcpgate/internal/downstream"
	"github.com/revittco/mcpgate/internal/gateway"
	"github.com/revittco/mcpgate/internal/logging"
	"github.com/revittco/mcpgate/internal/secrets"
	"github.com/revittco/mcpgate/internal/store"
	"github.com/revittco/mcpgate/internal/store/sqlite"
	"github.com/revittco/mcpgate/internal/telemetry"
)

func runServe(parent context.Context, opts *rootOptions) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return err
	}

	logger := buildLogger(cfg, settings, opts)
	slog.SetDefault(logger)
	logger.Info("loaded config", "file", opts.configPath, "name", cfg.Name, "version", cfg.Version)

	lookup, err := buildLookup(settings)
	if err != nil {
		return err
	}

	var metrics telemetry.Metrics = telemetry.NewNoopMetrics()
	registry := prometheus.NewRegistry()
	if settings.HTTPAddr != "" {
		metrics = telemetry.NewPrometheusMetrics(registry)
	}

	tc := cache.New[json.RawMessage](cache.ConfigFrom(cfg.Cache))
	tc.StartSweeper(cache.DefaultSweepInterval, logger)
	defer tc.Destroy()

	upstream, err := downstream.NewHandler(cfg,
		downstream.WithCache(tc),
		downstream.WithLogger(logger),
		downstream.WithMetrics(metrics),
		downstream.WithLookup(lookup),
	)
	if err != nil {
		return err
	}

	gwOpts := []gateway.ServerOption{gateway.WithLogger(logger), gateway.WithMetrics(metrics)}
	var auditStore store.Store
	if settings.AuditDB != "" {
		db, err := sqlite.New(ctx, settings.AuditDB)
		if err != nil {
			return fmt.Errorf("open audit database: %w", err)
		}
		defer func() { _ = db.Close() }()

		pruner := audit.NewPruner(db, settings.AuditRetention, logger)
		pruner.Start(audit.DefaultPruneInterval)
		defer pruner.Stop()

		auditStore = db
		gwOpts = append(gwOpts, gateway.WithAuditor(audit.NewLogger(db, cfg.Auth.KeyName)))
		logger.Info("audit log enabled", "path", settings.AuditDB, "retention", settings.AuditRetention)
	}

	gw := gateway.NewServer(cfg, upstream, gwOpts...)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		// The admin listener exits with the session.
		defer stop()
		return gw.RunStdio(gctx)
	})
	if settings.HTTPAddr != "" {
		ln, err := net.Listen("tcp", settings.HTTPAddr)
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("listen admin http: %w", err)
		}
		router := api.NewRouter(api.RouterDeps{
			Name:       cfg.Name,
			Version:    cfg.Version,
			Cache:      tc,
			AuditStore: auditStore,
			Gatherer:   registry,
			Logger:     logger,
		})
		g.Go(func() error {
			return api.Serve(gctx, ln, router, logger)
		})
	}

	err = g.Wait()
	stats := tc.Stats()
	logger.Info("gateway stopped",
		"cache_hits", stats.Hits,
		"cache_misses", stats.Misses,
		"cache_hit_rate", stats.HitRate,
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// buildLogger applies overrides in increasing precedence: config file,
// environment, then the --log-level flag.
func buildLogger(cfg *config.MCPConfig, settings *Settings, opts *rootOptions) *slog.Logger {
	level := cfg.Logging.Level
	if settings.LogLevel != "" {
		level = settings.LogLevel
	}
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	format := cfg.Logging.Format
	if settings.LogFormat != "" {
		format = settings.LogFormat
	}
	return logging.New(os.Stderr, logging.ParseLevel(level), format)
}

// buildLookup returns the credential resolver: the sealed secrets file
// when configured, the process environment otherwise.
func buildLookup(settings *Settings) (auth.LookupFunc, error) {
	if settings.SecretsFile == "" {
		return os.LookupEnv, nil
	}
	if settings.AgeIdentity == "" {
		return nil, errors.New("MCPGATE_AGE_IDENTITY must be set to read MCPGATE_SECRETS_FILE")
	}
	enc, err := secrets.NewAgeEncryptor(settings.AgeIdentity)
	if err != nil {
		return nil, fmt.Errorf("create encryptor: %w", err)
	}
	sm, err := secrets.Open(settings.SecretsFile, enc)
	if err != nil {
		return nil, fmt.Errorf("open secrets: %w", err)
	}
	return sm.Lookup, nil
}
