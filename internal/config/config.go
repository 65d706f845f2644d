package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const (
	ProviderSimulated = "simulated"
	ProviderLive      = "live"
)

type Config struct {
	Port        string
	DatabaseURL string

	MigrationsPath string

	WebhookSecret string

	// Provider selects the payment integration once at startup.
	Provider        string
	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderTimeout time.Duration

	AMQPURL     string
	NotifyQueue string

	ReconcileInterval time.Duration
	StuckAfter        time.Duration
	PendingExpiry     time.Duration

	AllowedOrigins []string
}

func Load() (Config, error) {
	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		MigrationsPath:    getEnv("MIGRATIONS_PATH", "./migrations"),
		WebhookSecret:     os.Getenv("WEBHOOK_SECRET"),
		Provider:          getEnv("PAYMENT_PROVIDER", ProviderSimulated),
		ProviderBaseURL:   os.Getenv("PAYMENT_PROVIDER_URL"),
		ProviderAPIKey:    os.Getenv("PAYMENT_PROVIDER_API_KEY"),
		ProviderTimeout:   getDuration("PAYMENT_PROVIDER_TIMEOUT", 10*time.Second),
		AMQPURL:           os.Getenv("AMQP_URL"),
		NotifyQueue:       getEnv("NOTIFY_QUEUE", "order.paid"),
		ReconcileInterval: getDuration("RECONCILE_INTERVAL", 1*time.Minute),
		StuckAfter:        getDuration("RECONCILE_STUCK_AFTER", 5*time.Minute),
		PendingExpiry:     getDuration("PENDING_ORDER_EXPIRY", 30*time.Minute),
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.WebhookSecret == "" {
		return Config{}, fmt.Errorf("WEBHOOK_SECRET is required")
	}
	switch cfg.Provider {
	case ProviderSimulated:
	case ProviderLive:
		if cfg.ProviderBaseURL == "" || cfg.ProviderAPIKey == "" {
			return Config{}, fmt.Errorf("PAYMENT_PROVIDER_URL and PAYMENT_PROVIDER_API_KEY are required for the live provider")
		}
	default:
		return Config{}, fmt.Errorf("unknown PAYMENT_PROVIDER %q", cfg.Provider)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
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
