package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"parley/chat"
	"parley/config"
	"parley/history"
	"parley/logging"
	"parley/provider"
	"parley/server"
	"parley/store"
	"parley/tools"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the TOML config file")
	flag.Parse()

	logger := logging.Default()

	if *configPath != "" && !config.FileExists(*configPath) {
		if err := writeConfigTemplate(*configPath); err != nil {
			logger.Warn("could not write config template", "path", *configPath, "error", err.Error())
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err.Error())
		os.Exit(1)
	}

	st, err := store.New(cfg.DatabasePath(), cfg.Server.RecoveryHours, logging.WithComponent(logger, "store"))
	if err != nil {
		logger.Error("failed to open store", "error", err.Error())
		os.Exit(1)
	}
	defer st.Close()

	providers, err := provider.NewRegistry(cfg)
	if err != nil {
		logger.Error("failed to build provider registry", "error", err.Error())
		os.Exit(1)
	}

	toolReg := tools.NewRegistry(
		cfg.Tools.Dir,
		tools.NewMCPRunner(),
		time.Duration(cfg.Tools.TimeoutSeconds)*time.Second,
		logging.WithComponent(logger, "tools"),
	)
	if err := toolReg.Load(); err != nil {
		logger.Error("failed to load tool manifests", "error", err.Error())
		os.Exit(1)
	}

	builder := &history.Builder{IncludeLatestPrior: cfg.History.IncludeLatestPrior}
	orchestrator := chat.New(providers, toolReg, st, builder, cfg.Prompts,
		cfg.Tools.Enabled, logging.WithComponent(logger, "chat"))

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           server.New(orchestrator, st, providers, toolReg, logging.WithComponent(logger, "http")).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go purgeLoop(ctx, st, logger)

	go func() {
		logger.Info("gateway listening", "addr", cfg.Server.Listen, "providers", providers.IDs())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err.Error())
	}
}

// purgeLoop sweeps expired soft-deleted message content once an hour.
func purgeLoop(ctx context.Context, st *store.Store, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := st.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("purge failed", "error", err.Error())
				continue
			}
			if n > 0 {
				logger.Info("purged expired messages", "count", n)
			}
		}
	}
}

func defaultConfigPath() string {
	if v := os.Getenv("PARLEY_CONFIG"); v != "" {
		return v
	}
	return "./parley.toml"
}

func writeConfigTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(config.GenerateConfigTemplate()), 0o600)
}
