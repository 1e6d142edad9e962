package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	alertloghandler "safesupport/internal/alertlog/handler"
	alertlogservice "safesupport/internal/alertlog/service"
	alertlogstore "safesupport/internal/alertlog/store"
	authhandler "safesupport/internal/auth/handler"
	authservice "safesupport/internal/auth/service"
	userstore "safesupport/internal/auth/store/user"
	contactshandler "safesupport/internal/contacts/handler"
	contactsservice "safesupport/internal/contacts/service"
	jwttoken "safesupport/internal/jwt_token"
	"safesupport/internal/notify/email"
	"safesupport/internal/notify/filesink"
	notifyhandler "safesupport/internal/notify/handler"
	notifyservice "safesupport/internal/notify/service"
	"safesupport/internal/notify/sms"
	"safesupport/internal/platform/config"
	"safesupport/internal/platform/httpserver"
	"safesupport/internal/platform/logger"
	"safesupport/internal/platform/metrics"
	"safesupport/internal/platform/postgres"
	"safesupport/internal/platform/redis"
	"safesupport/internal/ratelimit"
	httptransport "safesupport/internal/transport/http"
	vaulthandler "safesupport/internal/vault/handler"
	vaultservice "safesupport/internal/vault/service"
	vaultstore "safesupport/internal/vault/store"
	authmw "safesupport/pkg/platform/middleware/auth"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewWithRegistry(reg)

	checks := map[string]httptransport.HealthCheck{}
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	users, err := buildUserStore(ctx, cfg, checks, &closers)
	if err != nil {
		return err
	}
	alerts, err := buildAlertLogStore(ctx, cfg, checks, &closers)
	if err != nil {
		return err
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "safesupport")
	alertLog := alertlogservice.New(alerts, m, log)

	files := filesink.New(cfg.Storage.SMSDir, cfg.Storage.EmailDir)
	emails := email.NewSender(cfg.SMTP, email.NewLazy(email.SMTPBuilder(cfg.SMTP), log), files, log)
	provider := sms.Throttle(sms.Select(sms.FromConfig(cfg.SMS, nil)...), cfg.SMS.RatePerSecond)
	dispatcher := notifyservice.NewDispatcher(provider, emails, files, alertLog, notifyservice.Config{
		SMSFallbackToFile:   cfg.SMS.FallbackToFile,
		EmailFallbackToFile: cfg.SMTP.FallbackToFile,
	}, m, log)
	mailer := notifyservice.NewMailer(emails, cfg.AppURL, cfg.APIURL)

	auth := authservice.New(users, jwtService, mailer, m, log)
	guard := authmw.Guard{
		Validator:             jwttoken.NewJWTServiceAdapter(jwtService),
		Checker:               auth,
		AllowPublicAlerts:     cfg.AllowPublicAlerts,
		AllowUnverifiedAlerts: cfg.AllowUnverifiedAlerts,
		Logger:                log,
	}
	limiter := ratelimit.New(ratelimit.NewInMemoryBucketStore(), cfg.RateLimit, log)

	router := httptransport.NewRouter(httptransport.Options{
		Logger:      log,
		Latency:     m,
		Gatherer:    reg,
		CORSOrigins: cfg.CORSOrigins,
		Checks:      checks,
	},
		authhandler.New(auth, limiter, guard, cfg.AppURL, log),
		contactshandler.New(contactsservice.New(users, log), guard, log),
		notifyhandler.New(dispatcher, mailer, cfg.SMTP, guard, log),
		vaulthandler.New(vaultservice.New(vaultstore.NewFileStore(cfg.Storage.ReportsDir), m, log), guard, log),
		alertloghandler.New(alertLog, guard, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting safesupport",
		"addr", cfg.Addr,
		"sms_provider", dispatcher.ProviderName(),
		"user_store", cfg.Storage.UserStore,
		"alert_log_store", cfg.Storage.AlertLogStore,
	)

	return httpserver.Run(ctx, srv, nil, cfg.ShutdownTimeout, log)
}

type userStore interface {
	authservice.Store
	contactsservice.Store
}

func buildUserStore(ctx context.Context, cfg config.Server, checks map[string]httptransport.HealthCheck, closers *[]func()) (userStore, error) {
	switch cfg.Storage.UserStore {
	case "redis":
		client, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("user store: %w", err)
		}
		*closers = append(*closers, func() { _ = client.Close() })
		checks["redis"] = client.Health
		return userstore.NewRedisUserStore(client.Client), nil
	case "postgres":
		db, err := postgres.OpenDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if db == nil {
			return nil, errors.New("USER_STORE=postgres requires DATABASE_URL")
		}
		*closers = append(*closers, func() { _ = db.Close() })
		checks["postgres_users"] = db.PingContext
		store := userstore.NewPostgresUserStore(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "file", "":
		return userstore.NewFileUserStore(cfg.Storage.UsersFile)
	default:
		return nil, fmt.Errorf("unknown USER_STORE %q", cfg.Storage.UserStore)
	}
}

func buildAlertLogStore(ctx context.Context, cfg config.Server, checks map[string]httptransport.HealthCheck, closers *[]func()) (alertlogservice.Store, error) {
	switch cfg.Storage.AlertLogStore {
	case "postgres":
		pool, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if pool == nil {
			return nil, errors.New("ALERT_LOG_STORE=postgres requires DATABASE_URL")
		}
		*closers = append(*closers, pool.Close)
		checks["postgres_alerts"] = pool.Ping
		store := alertlogstore.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "file", "":
		return alertlogstore.NewFileStore(cfg.Storage.AlertsFile), nil
	default:
		return nil, fmt.Errorf("unknown ALERT_LOG_STORE %q", cfg.Storage.AlertLogStore)
	}
}
