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

	"github.com/joao-fontenele/levelup-gamer/internal/cart"
	"github.com/joao-fontenele/levelup-gamer/internal/checkout"
	"github.com/joao-fontenele/levelup-gamer/internal/collection"
	"github.com/joao-fontenele/levelup-gamer/internal/config"
	"github.com/joao-fontenele/levelup-gamer/internal/events"
	"github.com/joao-fontenele/levelup-gamer/internal/inventory"
	"github.com/joao-fontenele/levelup-gamer/internal/messaging"
	"github.com/joao-fontenele/levelup-gamer/internal/orders"
	"github.com/joao-fontenele/levelup-gamer/internal/reviews"
	"github.com/joao-fontenele/levelup-gamer/internal/seed"
	"github.com/joao-fontenele/levelup-gamer/internal/session"
	"github.com/joao-fontenele/levelup-gamer/internal/telemetry"
	"github.com/joao-fontenele/levelup-gamer/internal/users"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(logger, "8081")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	providers, err := telemetry.Setup(ctx, "storefront", cfg.Telemetry.Version, cfg.Telemetry.Enabled)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = providers.Shutdown(ctx) }()

	store, closeStore, err := openCollection(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open collection store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	sessions, closeSessions, err := openSessions(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer closeSessions()

	bus := events.NewBus(16)

	productRepo := inventory.NewProductRepository(store)
	stock := inventory.NewStockService(productRepo, logger)
	orderRepo := orders.NewOrderRepository(store)
	userRepo := users.NewUserRepository(store)
	userService := users.NewService(userRepo, sessions, bus, logger)

	var opts []checkout.Option
	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		producer := messaging.NewProducer(brokers, cfg.Kafka.Topic)
		defer func() { _ = producer.Close() }()
		opts = append(opts, checkout.WithNotifier(producer))
		logger.Info("order notifications enabled", "brokers", brokers, "topic", producer.Topic())
	}

	checkoutService, err := checkout.NewService(sessions, orderRepo, stock, userRepo, bus, logger, opts...)
	if err != nil {
		logger.Error("failed to create checkout service", "error", err)
		os.Exit(1)
	}

	productHandler := inventory.NewHandler(productRepo, stock, logger)
	cartHandler := cart.NewHandler(sessions, productRepo, bus, logger)
	checkoutHandler := checkout.NewHandler(checkoutService, logger)
	userHandler := users.NewHandler(userService, logger)
	reviewHandler := reviews.NewHandler(reviews.NewReviewRepository(store), productRepo, sessions, logger)
	orderHandler := orders.NewHandler(orderRepo, logger)
	streamHandler := events.NewStreamHandler(bus, logger, 15*time.Second, session.FromRequest)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(productHandler.HandleCatalog))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(productHandler.HandleGet))
	mux.HandleFunc("GET /products/{id}/reviews", telemetry.WithHTTPRoute(reviewHandler.HandleList))
	mux.HandleFunc("POST /products/{id}/reviews", telemetry.WithHTTPRoute(reviewHandler.HandleCreate))

	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(cartHandler.HandleGet))
	mux.HandleFunc("DELETE /cart", telemetry.WithHTTPRoute(cartHandler.HandleClear))
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(cartHandler.HandleAdd))
	mux.HandleFunc("PATCH /cart/items/{productId}", telemetry.WithHTTPRoute(cartHandler.HandleSetQuantity))
	mux.HandleFunc("DELETE /cart/items/{productId}", telemetry.WithHTTPRoute(cartHandler.HandleRemove))

	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(checkoutHandler.HandleCheckout))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleCustomerOrders))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))

	mux.HandleFunc("POST /auth/register", telemetry.WithHTTPRoute(userHandler.HandleRegister))
	mux.HandleFunc("POST /auth/login", telemetry.WithHTTPRoute(userHandler.HandleLogin))
	mux.HandleFunc("POST /auth/logout", telemetry.WithHTTPRoute(userHandler.HandleLogout))
	mux.HandleFunc("GET /auth/me", telemetry.WithHTTPRoute(userHandler.HandleMe))

	mux.HandleFunc("GET /events", streamHandler.HandleStream)
	if providers.Metrics != nil {
		mux.Handle("GET /metrics", providers.Metrics)
	}

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     telemetry.NewHandler(mux, "storefront"),
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: /events responses stay open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("starting storefront service", "port", cfg.Port)
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

// openCollection uses Postgres when a URL is configured. Without one the service runs on an
// in-memory store loaded with the demo catalog.
func openCollection(ctx context.Context, cfg *config.Config, logger *slog.Logger) (collection.Store, func(), error) {
	if cfg.Postgres.URL == "" {
		logger.Warn("POSTGRES_URL not set, using in-memory collection store")
		store := collection.NewMemory()
		if _, err := seed.Run(ctx, store, logger); err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}

	db, err := telemetry.ConnectPostgres(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, nil, err
	}
	return collection.NewPostgres(db), func() { _ = db.Close() }, nil
}

func openSessions(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Store, func(), error) {
	if cfg.Redis.Addr == "" {
		logger.Warn("REDIS_ADDR not set, using in-memory session store")
		return session.NewMemory(), func() {}, nil
	}

	client, err := session.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	return session.NewRedis(client, cfg.Redis.SessionTTL), func() { _ = client.Close() }, nil
}
