package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything read from the environment at process start.
// The Stripe key lives here and is handed to the provider constructor once;
// nothing mutates it afterwards.
type Config struct {
	HTTPAddr        string
	StripeSecretKey string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// AccountKind tags emitted events as "user" or "team" billing.
	AccountKind string

	// AddonPlans lists the add-on plan ids the catalog registers at startup.
	AddonPlans []string

	// Ops notifications (optional; mailer disables itself when empty).
	OpsEmail string
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

// Load reads .env (if present) and builds the config. Missing required
// variables are an error so the process fails at startup, not mid-request.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBHost:          getenv("DB_HOST", "127.0.0.1"),
		DBPort:          getenv("DB_PORT", "3306"),
		DBName:          getenv("DB_NAME", "cashier"),
		AccountKind:     getenv("ACCOUNT_KIND", "user"),
		OpsEmail:        os.Getenv("OPS_EMAIL"),
		SMTPHost:        os.Getenv("SMTP_HOST"),
		SMTPPort:        os.Getenv("SMTP_PORT"),
		SMTPUser:        os.Getenv("SMTP_USER"),
		SMTPPass:        os.Getenv("SMTP_PASS"),
		SMTPFrom:        os.Getenv("SMTP_FROM"),
	}
	if cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if cfg.DBUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	if cfg.AccountKind != "user" && cfg.AccountKind != "team" {
		return nil, fmt.Errorf("ACCOUNT_KIND must be user or team, got %q", cfg.AccountKind)
	}
	for _, id := range strings.Split(os.Getenv("ADDON_PLANS"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			cfg.AddonPlans = append(cfg.AddonPlans, id)
		}
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
