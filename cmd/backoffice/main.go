package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/joao-fontenele/levelup-gamer/internal/collection"
	"github.com/joao-fontenele/levelup-gamer/internal/config"
	"github.com/joao-fontenele/levelup-gamer/internal/events"
	"github.com/joao-fontenele/levelup-gamer/internal/inventory"
	"github.com/joao-fontenele/levelup-gamer/internal/orders"
	"github.com/joao-fontenele/levelup-gamer/internal/seed"
	"github.com/joao-fontenele/levelup-gamer/internal/session"
	"github.com/joao-fontenele/levelup-gamer/internal/telemetry"
	"github.com/joao-fontenele/levelup-gamer/internal/users"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(logger, "8082")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	providers, err := telemetry.Setup(ctx, "backoffice", cfg.Telemetry.Version, cfg.Telemetry.Enabled)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = providers.Shutdown(ctx) }()

	var store collection.Store
	if cfg.Postgres.URL == "" {
		logger.Warn("POSTGRES_URL not set, using in-memory collection store")
		memory := collection.NewMemory()
		if _, err := seed.Run(ctx, memory, logger); err != nil {
			logger.Error("failed to seed in-memory store", "error", err)
			os.Exit(1)
		}
		store = memory
	} else {
		db, err := telemetry.ConnectPostgres(ctx, cfg.Postgres.URL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		store = collection.NewPostgres(db)
	}

	productRepo := inventory.NewProductRepository(store)
	productHandler := inventory.NewHandler(productRepo, inventory.NewStockService(productRepo, logger), logger)
	orderHandler := orders.NewHandler(orders.NewOrderRepository(store), logger)

	// Admin calls carry no shopper session; the user service only needs one for login.
	userService := users.NewService(users.NewUserRepository(store), session.NewMemory(), events.Nop{}, logger)
	userHandler := users.NewHandler(userService, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(productHandler.HandleList))
	mux.HandleFunc("POST /products", telemetry.WithHTTPRoute(productHandler.HandleCreate))
	mux.HandleFunc("GET /products/low-stock", telemetry.WithHTTPRoute(productHandler.HandleLowStock))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(productHandler.HandleGet))
	mux.HandleFunc("PUT /products/{id}", telemetry.WithHTTPRoute(productHandler.HandleUpdate))
	mux.HandleFunc("DELETE /products/{id}", telemetry.WithHTTPRoute(productHandler.HandleDelete))
	mux.HandleFunc("POST /products/{id}/decrement", telemetry.WithHTTPRoute(productHandler.HandleDecrement))

	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(orderHandler.HandleUpdateStatus))
	mux.HandleFunc("PATCH /orders/{id}/payment", telemetry.WithHTTPRoute(orderHandler.HandleUpdatePayment))
	mux.HandleFunc("GET /metrics/sales", telemetry.WithHTTPRoute(orderHandler.HandleSales))

	mux.HandleFunc("GET /users", telemetry.WithHTTPRoute(userHandler.HandleList))
	mux.HandleFunc("POST /users", telemetry.WithHTTPRoute(userHandler.HandleCreate))
	mux.HandleFunc("GET /users/{id}", telemetry.WithHTTPRoute(userHandler.HandleGet))
	mux.HandleFunc("PUT /users/{id}", telemetry.WithHTTPRoute(userHandler.HandleUpdate))
	mux.HandleFunc("DELETE /users/{id}", telemetry.WithHTTPRoute(userHandler.HandleDelete))

	if providers.Metrics != nil {
		mux.Handle("GET /metrics", providers.Metrics)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      telemetry.NewHandler(mux, "backoffice"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting backoffice service", "port", cfg.Port)
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
