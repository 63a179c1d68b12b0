package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ericfisherdev/crmvault/internal/adapter/driven/keycrypt"
	metricsadapter "github.com/ericfisherdev/crmvault/internal/adapter/driven/metrics"
	sqliteadapter "github.com/ericfisherdev/crmvault/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/crmvault/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/crmvault/internal/adapter/driving/web"
	"github.com/ericfisherdev/crmvault/internal/application"
	"github.com/ericfisherdev/crmvault/internal/config"
	"github.com/ericfisherdev/crmvault/internal/domain/model"
	"github.com/ericfisherdev/crmvault/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration from env, then apply flag overrides.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := config.ApplyFlags(cfg, os.Args[1:]); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"origin", cfg.Origin,
		"remember_ttl", cfg.RememberTTL,
		"kdf_iterations", cfg.KDFIterations,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the credential store. Without it the vault runs unsupported
	// and every operation degrades to a silent no-op.
	var store driven.RecordStore
	db, err := openStore(ctx, cfg)
	if err != nil {
		slog.Warn("credential store unavailable, remember me disabled", "path", cfg.DBPath, "error", err)
	} else {
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		store = sqliteadapter.NewRecordRepo(db, cfg.StoreOpenTimeout)
		slog.Info("credential store opened", "path", cfg.DBPath)
	}

	// 4. Wire the vault.
	vaultMetrics, err := metricsadapter.NewVaultMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	vault := application.NewVaultService(
		store,
		keycrypt.NewSuite(cfg.KDFIterations),
		vaultMetrics,
		application.VaultConfig{
			Environment: model.Environment{
				Origin:   cfg.Origin,
				Locale:   cfg.Locale,
				TimeZone: cfg.TimeZone,
			},
			TTL: cfg.RememberTTL,
		},
		logger,
	)

	// 5. Register API and status page routes.
	mux := http.NewServeMux()
	apiHandler := httphandler.NewHandler(vault, cfg.Origin, httphandler.NewMetricsHandler(), logger)
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	webHandler := webhandler.NewHandler(vault, vault.TTL(), cfg.Notice, isHTTPS(cfg.Origin), logger)
	webhandler.RegisterRoutes(mux, webHandler)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.ApplyMiddleware(mux, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("crmvault started", "listen_addr", cfg.ListenAddr, "store_enabled", store != nil)

	// 6. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// openStore opens the SQLite database within the store open timeout and
// brings its schema up to date.
func openStore(ctx context.Context, cfg *config.Config) (*sqliteadapter.DB, error) {
	openCtx, cancel := context.WithTimeout(ctx, cfg.StoreOpenTimeout)
	defer cancel()

	db, err := sqliteadapter.NewDB(openCtx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := sqliteadapter.RunMigrations(openCtx, db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func isHTTPS(origin string) bool {
	u, err := url.Parse(origin)
	return err == nil && u.Scheme == "https"
}
