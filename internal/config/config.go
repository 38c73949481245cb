// Package config reads service settings from an optional config.yaml and the environment.
// Every key can be set as LEVELUP_<SECTION>_<KEY>; the plain names used by the compose file
// (POSTGRES_URL, REDIS_ADDR, KAFKA_BROKERS, PORT, ...) are honored too.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	Port      string          `mapstructure:"port"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Services  ServicesConfig  `mapstructure:"services"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type PostgresConfig struct {
	URL        string `mapstructure:"url"`
	Migrations string `mapstructure:"migrations"`
}

type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// BrokerList splits the comma-separated broker list. Empty means Kafka is disabled.
func (k KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

type ServicesConfig struct {
	StorefrontURL string `mapstructure:"storefront_url"`
	BackofficeURL string `mapstructure:"backoffice_url"`
	MailerURL     string `mapstructure:"mailer_url"`
}

type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Version string `mapstructure:"version"`
}

var plainEnv = map[string]string{
	"env":                     "APP_ENV",
	"port":                    "PORT",
	"postgres.url":            "POSTGRES_URL",
	"postgres.migrations":     "MIGRATIONS_PATH",
	"redis.addr":              "REDIS_ADDR",
	"redis.password":          "REDIS_PASSWORD",
	"kafka.brokers":           "KAFKA_BROKERS",
	"services.storefront_url": "STOREFRONT_SERVICE_URL",
	"services.backoffice_url": "BACKOFFICE_SERVICE_URL",
	"services.mailer_url":     "MAILER_SERVICE_URL",
}

// LoadEnv loads .env.local into the process environment when APP_ENV is "local".
func LoadEnv(logger *slog.Logger) {
	if os.Getenv("APP_ENV") != "local" {
		return
	}
	if err := godotenv.Load(".env.local"); err != nil {
		logger.Warn("could not load .env.local, using the process environment", "error", err)
		return
	}
	logger.Info("loaded .env.local")
}

// Load builds the configuration for one binary. defaultPort applies when nothing sets port.
func Load(logger *slog.Logger, defaultPort string) (*Config, error) {
	LoadEnv(logger)

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./deploy/")
	v.AddConfigPath("./")
	v.AddConfigPath("/etc/levelup/")

	v.SetEnvPrefix("LEVELUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, defaultPort)

	for key, env := range plainEnv {
		prefixed := "LEVELUP_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		logger.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, defaultPort string) {
	v.SetDefault("env", "development")
	v.SetDefault("port", defaultPort)
	v.SetDefault("postgres.migrations", "file://migrations")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.session_ttl", 7*24*time.Hour)
	v.SetDefault("kafka.topic", "order.created")
	v.SetDefault("kafka.group_id", "order-mailer")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.version", "0.1.0")
}
