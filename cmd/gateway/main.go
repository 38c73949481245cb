package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joao-fontenele/levelup-gamer/internal/config"
	"github.com/joao-fontenele/levelup-gamer/internal/gateway"
	"github.com/joao-fontenele/levelup-gamer/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(logger, "8080")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	providers, err := telemetry.Setup(ctx, "gateway", cfg.Telemetry.Version, cfg.Telemetry.Enabled)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = providers.Shutdown(ctx) }()

	if cfg.Services.StorefrontURL == "" {
		logger.Error("STOREFRONT_SERVICE_URL is required")
		os.Exit(1)
	}
	if cfg.Services.BackofficeURL == "" {
		logger.Error("BACKOFFICE_SERVICE_URL is required")
		os.Exit(1)
	}

	// No client timeout: event streams are proxied for as long as the shopper stays connected.
	httpClient := &http.Client{
		Transport: telemetry.NewTransport(http.DefaultTransport),
	}

	storefrontProxy := gateway.NewServiceProxy(cfg.Services.StorefrontURL, httpClient)
	backofficeProxy := gateway.NewServiceProxy(cfg.Services.BackofficeURL, httpClient)
	handler := gateway.NewHandler(storefrontProxy, backofficeProxy, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/shop/", telemetry.WithHTTPRoute(handler.HandleStorefront))
	mux.HandleFunc("/admin/", telemetry.WithHTTPRoute(handler.HandleBackoffice))
	if providers.Metrics != nil {
		mux.Handle("GET /metrics", providers.Metrics)
	}

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     telemetry.NewHandler(mux, "gateway"),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("starting gateway service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
