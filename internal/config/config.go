// Package config loads and validates the rentd runtime configuration from
// the environment. Precedence is ENV > defaults; a .env file may seed the
// environment before Load is called.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// AppConfig holds the complete runtime configuration for rentd.
type AppConfig struct {
	// Environment is "development" or "production".
	Environment string
	LogLevel    string
	Version     string

	// DataDir is the root for all local state (database, sessions, uploads).
	DataDir string

	// Store
	StoreDriver string // "sqlite", "postgres" or "memory"
	SQLitePath  string
	PostgresDSN string

	// Sessions (refresh tokens)
	SessionsPath    string
	RefreshTokenTTL time.Duration

	// Auth
	JWTSecret      string
	AccessTokenTTL time.Duration

	// HTTP
	AllowedOrigins []string
	RateLimitRPM   int // general API requests per minute per IP
	AuthRateRPM    int // auth endpoint requests per minute per IP
	MaxUploadBytes int64

	// Cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Metrics
	MetricsEnabled bool
	MetricsAddr    string

	// Email
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	// Payment providers
	StripeSecretKey  string
	StripeBaseURL    string
	PayPalClientID   string
	PayPalSecret     string
	PayPalBaseURL    string
	PaymentRateLimit float64 // provider API calls per second

	// Billing job
	BillingEnabled  bool
	BillingInterval time.Duration
	RentDueDay      int    // day of month rent invoices come due
	GraceDays       int    // days after due date before a payment is overdue
	Currency        string // ISO 4217 code stamped on generated invoices

	// Error reporting
	SentryDSN string
}

// Load reads the configuration from the environment and applies defaults.
func Load(version string) AppConfig {
	dataDir := ParseString("RENTD_DATA", "data")

	cfg := AppConfig{
		Environment: ParseString("RENTD_ENV", "development"),
		LogLevel:    ParseString("RENTD_LOG_LEVEL", "info"),
		Version:     version,

		DataDir: dataDir,

		StoreDriver: ParseString("RENTD_STORE_DRIVER", "sqlite"),
		SQLitePath:  ParseString("RENTD_SQLITE_PATH", filepath.Join(dataDir, "rentd.db")),
		PostgresDSN: ParseString("RENTD_POSTGRES_DSN", ""),

		SessionsPath:    ParseString("RENTD_SESSIONS_PATH", filepath.Join(dataDir, "sessions")),
		RefreshTokenTTL: ParseDuration("RENTD_REFRESH_TOKEN_TTL", 30*24*time.Hour),

		JWTSecret:      ParseString("RENTD_JWT_SECRET", ""),
		AccessTokenTTL: ParseDuration("RENTD_ACCESS_TOKEN_TTL", time.Hour),

		AllowedOrigins: ParseStringSlice("RENTD_ALLOWED_ORIGINS", nil),
		RateLimitRPM:   ParseInt("RENTD_RATE_LIMIT_RPM", 600),
		AuthRateRPM:    ParseInt("RENTD_AUTH_RATE_LIMIT_RPM", 10),
		MaxUploadBytes: ParseInt64("RENTD_MAX_UPLOAD_BYTES", 10<<20),

		RedisAddr:     ParseString("RENTD_REDIS_ADDR", ""),
		RedisPassword: ParseString("RENTD_REDIS_PASSWORD", ""),
		RedisDB:       ParseInt("RENTD_REDIS_DB", 0),

		MetricsEnabled: ParseBool("RENTD_METRICS_ENABLED", false),
		MetricsAddr:    ParseString("RENTD_METRICS_ADDR", ":9090"),

		SMTPHost:     ParseString("RENTD_SMTP_HOST", ""),
		SMTPPort:     ParseInt("RENTD_SMTP_PORT", 587),
		SMTPUser:     ParseString("RENTD_SMTP_USER", ""),
		SMTPPassword: ParseString("RENTD_SMTP_PASSWORD", ""),
		SMTPFrom:     ParseString("RENTD_SMTP_FROM", ""),

		StripeSecretKey:  ParseString("RENTD_STRIPE_SECRET_KEY", ""),
		StripeBaseURL:    ParseString("RENTD_STRIPE_BASE_URL", "https://api.stripe.com"),
		PayPalClientID:   ParseString("RENTD_PAYPAL_CLIENT_ID", ""),
		PayPalSecret:     ParseString("RENTD_PAYPAL_SECRET", ""),
		PayPalBaseURL:    ParseString("RENTD_PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
		PaymentRateLimit: float64(ParseInt("RENTD_PAYMENT_RATE_LIMIT", 10)),

		BillingEnabled:  ParseBool("RENTD_BILLING_ENABLED", true),
		BillingInterval: ParseDuration("RENTD_BILLING_INTERVAL", time.Hour),
		RentDueDay:      ParseInt("RENTD_RENT_DUE_DAY", 1),
		GraceDays:       ParseInt("RENTD_GRACE_DAYS", 5),
		Currency:        ParseString("RENTD_CURRENCY", "KES"),

		SentryDSN: ParseString("RENTD_SENTRY_DSN", ""),
	}
	return cfg
}

// IsDevelopment reports whether the service runs in development mode.
func (c AppConfig) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// Validate checks configuration invariants. It is called once at startup and
// the daemon refuses to start on error.
func (c AppConfig) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case "sqlite", "memory":
	case "postgres":
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("RENTD_POSTGRES_DSN is required when RENTD_STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		if c.IsDevelopment() {
			// Tolerated in development so a bare `go run` works; Load logs it.
		} else {
			errs = append(errs, errors.New("RENTD_JWT_SECRET is required in production"))
		}
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("RENTD_JWT_SECRET must be at least 32 bytes"))
	}

	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("access token TTL must be positive"))
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		errs = append(errs, errors.New("refresh token TTL must exceed access token TTL"))
	}

	if c.RentDueDay < 1 || c.RentDueDay > 28 {
		errs = append(errs, fmt.Errorf("RENTD_RENT_DUE_DAY must be within 1..28, got %d", c.RentDueDay))
	}
	if c.GraceDays < 0 {
		errs = append(errs, errors.New("RENTD_GRACE_DAYS must not be negative"))
	}
	if len(c.Currency) != 3 {
		errs = append(errs, fmt.Errorf("RENTD_CURRENCY must be a 3-letter code, got %q", c.Currency))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("RENTD_MAX_UPLOAD_BYTES must be positive"))
	}

	if (c.SMTPHost == "") != (c.SMTPFrom == "") {
		errs = append(errs, errors.New("RENTD_SMTP_HOST and RENTD_SMTP_FROM must be set together"))
	}
	if (c.PayPalClientID == "") != (c.PayPalSecret == "") {
		errs = append(errs, errors.New("RENTD_PAYPAL_CLIENT_ID and RENTD_PAYPAL_SECRET must be set together"))
	}

	return errors.Join(errs...)
}
