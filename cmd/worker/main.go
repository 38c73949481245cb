package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joao-fontenele/levelup-gamer/internal/config"
	"github.com/joao-fontenele/levelup-gamer/internal/email"
	"github.com/joao-fontenele/levelup-gamer/internal/messaging"
	"github.com/joao-fontenele/levelup-gamer/internal/telemetry"
	"github.com/joao-fontenele/levelup-gamer/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(logger, "")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	brokers := cfg.Kafka.BrokerList()
	if len(brokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}
	if cfg.Services.MailerURL == "" {
		logger.Error("MAILER_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := telemetry.Setup(ctx, "worker", cfg.Telemetry.Version, cfg.Telemetry.Enabled)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = providers.Shutdown(context.Background()) }()

	consumer := messaging.NewConsumer(brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, logger,
		messaging.WithRetry(3, time.Second))
	defer func() { _ = consumer.Close() }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: telemetry.NewTransport(http.DefaultTransport),
	}
	mailer := worker.NewOrderMailer(email.NewClient(cfg.Services.MailerURL, httpClient), logger)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting order mailer", "brokers", brokers, "topic", cfg.Kafka.Topic, "group_id", cfg.Kafka.GroupID)

	if err := consumer.Consume(ctx, mailer.Handle); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
