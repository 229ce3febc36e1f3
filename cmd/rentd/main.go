package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tenantry/rentd/internal/api"
	"github.com/tenantry/rentd/internal/auth"
	"github.com/tenantry/rentd/internal/cache"
	"github.com/tenantry/rentd/internal/config"
	"github.com/tenantry/rentd/internal/daemon"
	"github.com/tenantry/rentd/internal/files"
	"github.com/tenantry/rentd/internal/health"
	"github.com/tenantry/rentd/internal/jobs"
	"github.com/tenantry/rentd/internal/log"
	"github.com/tenantry/rentd/internal/notify"
	"github.com/tenantry/rentd/internal/payments"
	"github.com/tenantry/rentd/internal/sessions"
	"github.com/tenantry/rentd/internal/store"
	"github.com/tenantry/rentd/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rentd %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.BuildDate)
		os.Exit(0)
	}

	// A .env file may seed the environment before config is read.
	_ = godotenv.Load()

	cfg := config.Load(version.Version)
	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: "rentd",
		Version: version.Version,
	})
	logger := log.WithComponent("main")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.JWTSecret == "" {
		logger.Warn().Msg("RENTD_JWT_SECRET not set, using an ephemeral development secret")
		cfg.JWTSecret = auth.EphemeralSecret()
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
			Release:     version.Version,
		}); err != nil {
			logger.Warn().Err(err).Msg("sentry init failed, continuing without error reporting")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Msg("rentd exited with error")
	}
}

func run(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("main")

	db, err := store.Open(store.Options{
		Driver:      cfg.StoreDriver,
		SQLitePath:  cfg.SQLitePath,
		PostgresDSN: cfg.PostgresDSN,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	sess, err := sessions.Open(cfg.SessionsPath, cfg.RefreshTokenTTL)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	var appCache cache.Cache
	if cfg.RedisAddr != "" {
		appCache, err = cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log.WithComponent("cache"))
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("using redis cache")
	} else {
		appCache = cache.NewMemory(time.Minute)
	}

	uploadDir := filepath.Join(cfg.DataDir, "uploads")
	uploads, err := files.NewStore(uploadDir, cfg.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("open upload store: %w", err)
	}

	var mail notify.EmailSender
	if sender := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}); sender != nil {
		mail = sender
		logger.Info().Str("host", cfg.SMTPHost).Msg("email delivery enabled")
	}
	notifier := notify.New(db, mail)

	providers := []payments.Provider{payments.ManualProvider{}}
	if cfg.StripeSecretKey != "" {
		providers = append(providers, payments.NewStripe(cfg.StripeSecretKey, cfg.StripeBaseURL, cfg.PaymentRateLimit))
		logger.Info().Msg("stripe payments enabled")
	}
	if cfg.PayPalClientID != "" {
		providers = append(providers, payments.NewPayPal(cfg.PayPalClientID, cfg.PayPalSecret, cfg.PayPalBaseURL, cfg.PaymentRateLimit))
		logger.Info().Msg("paypal payments enabled")
	}
	registry := payments.NewRegistry(providers...)

	billing := jobs.NewBilling(db, notifier, jobs.BillingConfig{
		Interval:   cfg.BillingInterval,
		RentDueDay: cfg.RentDueDay,
		GraceDays:  cfg.GraceDays,
		Currency:   cfg.Currency,
	})

	hm := health.NewManager(cfg.Version)
	hm.Register(health.NewPingChecker("database", db.Ping))
	hm.Register(health.NewDirChecker("uploads", uploadDir))
	if rc, ok := appCache.(interface {
		Ping(ctx context.Context) error
	}); ok {
		hm.Register(health.NewPingChecker("redis", rc.Ping))
	}
	if cfg.BillingEnabled {
		hm.Register(health.NewBillingChecker(billing.LastRun, 3*cfg.BillingInterval))
	}

	server := api.NewServer(cfg, api.Deps{
		Store:     db,
		Sessions:  sess,
		Tokens:    auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL),
		Notifier:  notifier,
		Providers: registry,
		Files:     uploads,
		Cache:     appCache,
		Health:    hm,
	})

	deps := daemon.Deps{APIHandler: server.Router()}
	if cfg.MetricsEnabled {
		deps.MetricsHandler = promhttp.Handler()
		deps.MetricsAddr = cfg.MetricsAddr
	}

	mgr, err := daemon.NewManager(config.ParseServerConfig(), deps)
	if err != nil {
		return err
	}
	if cfg.BillingEnabled {
		mgr.RegisterJob("billing", billing.Run)
	}
	mgr.RegisterShutdownHook("cache", func(context.Context) error { return appCache.Close() })
	mgr.RegisterShutdownHook("sessions", func(context.Context) error { return sess.Close() })
	mgr.RegisterShutdownHook("store", func(context.Context) error { return db.Close() })

	return mgr.Start(ctx)
}
