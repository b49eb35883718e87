package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"laptopkita/internal/catalog"
	"laptopkita/internal/catalogsync"
	"laptopkita/internal/cli"
	"laptopkita/internal/config"
	"laptopkita/internal/identity"
	"laptopkita/internal/logging"
	"laptopkita/internal/observability"
	"laptopkita/internal/session"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger := logging.NewWithWriter(cfg.LogLevel, os.Stderr)

	store, err := session.Open(cfg.SessionDB)
	if err != nil {
		logger.Errorf("open session store: %v", err)
		os.Exit(1)
	}

	providers, err := observability.Setup(context.Background(), observability.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
	}, logger)
	if err != nil {
		logger.Warnf("telemetry setup: %v", err)
	}

	client := catalog.NewClient(catalog.NewHTTPClient(cfg), cfg.BaseURL, cfg.Token)
	ctrl := catalogsync.NewController(client, store,
		catalogsync.WithLogger(logger),
		catalogsync.WithTelemetry(providers.Telemetry()),
		catalogsync.WithRefreshInterval(time.Duration(cfg.RefreshIntervalSec)*time.Second),
	)

	app := &cli.App{
		Controller: ctrl,
		Sessions:   store,
		Images:     client,
		Log:        logger,
		In:         os.Stdin,
		Out:        os.Stdout,
		Err:        os.Stderr,
	}
	if cfg.SignInConfigured() {
		app.SignIn = identity.NewDeviceSignIn(cfg.Google)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := app.Run(ctx, os.Args[1:])
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("telemetry shutdown: %v", err)
	}
	cancel()
	if err := store.Close(); err != nil {
		logger.Warnf("close session store: %v", err)
	}
	os.Exit(code)
}
