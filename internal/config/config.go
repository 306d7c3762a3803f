package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel string

	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string

	// DatabaseURL empty means the in-memory catalog is used.
	DatabaseURL    string
	MigrationsPath string

	// KafkaBrokers empty means order events are dropped.
	KafkaBrokers []string
	KafkaTopic   string

	CurrencySymbol string

	GatewayName    string
	GatewayOffsite bool
	GatewayManual  bool

	PlaceBeforePayment   bool
	ComponentPaymentData bool
}

func Load() *Config {
	return &Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "orders-placed"),

		CurrencySymbol: getEnv("CURRENCY_SYMBOL", "$"),

		GatewayName:    getEnv("PAYMENT_GATEWAY", "manual"),
		GatewayOffsite: getEnvBool("PAYMENT_GATEWAY_OFFSITE", false),
		GatewayManual:  getEnvBool("PAYMENT_GATEWAY_MANUAL", true),

		PlaceBeforePayment:   getEnvBool("PLACE_BEFORE_PAYMENT", true),
		ComponentPaymentData: getEnvBool("COMPONENT_PAYMENT_DATA", false),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
