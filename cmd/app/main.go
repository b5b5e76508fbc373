// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"picturas-subscriptions/internal/config"
	"picturas-subscriptions/internal/domain/ports/adapter"
	billingAdapter "picturas-subscriptions/internal/infra/adapters/billing"
	notifyAdapter "picturas-subscriptions/internal/infra/adapters/notify"
	pg "picturas-subscriptions/internal/infra/db/postgres"
	"picturas-subscriptions/internal/infra/logging"
	"picturas-subscriptions/internal/infra/metrics"
	red "picturas-subscriptions/internal/infra/redis"
	"picturas-subscriptions/internal/infra/sched"
	"picturas-subscriptions/internal/infra/web"
	"picturas-subscriptions/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop billing gateway)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	if err := pg.RunMigrations(cfg.Database.MigrationsDir, cfg.Database.URL); err != nil {
		logger.Fatal().Err(err).Msg("migrations")
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	subRepo := pg.NewSubscriptionRepo(pool)
	ledgerRepo := pg.NewEventLedgerRepo(pool)
	outboxRepo := pg.NewNotificationLogRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Adapters ----
	billing, err := newGateway(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("billing gateway")
	}
	logger.Info().Str("gateway", billing.Name()).Msg("billing gateway ready")

	notifier := notifyAdapter.NewHTTPNotifier(cfg.Users.Endpoint, cfg.Users.Timeout, logger)

	// ---- Use cases ----
	notifUC := usecase.NewNotificationUseCase(notifier, outboxRepo, cfg.Users.MaxAttempts, logger)
	checkoutUC := usecase.NewCheckoutUseCase(subRepo, billing, locker, cfg.Stripe, logger)
	reconcileUC := usecase.NewReconcileUseCase(subRepo, ledgerRepo, billing, notifUC, txManager, cfg.Stripe.GracePeriod, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, notifUC, cfg.Stripe.GracePeriod, logger)

	// ---- Identity validation ----
	pubKey, err := cfg.PublicKey()
	if err != nil {
		logger.Fatal().Err(err).Msg("auth key")
	}
	validator, err := web.NewTokenValidator(pubKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("auth key parse")
	}

	// ---- HTTP server ----
	srv := web.NewServer(checkoutUC, reconcileUC, subUC, billing, validator, rateLimiter, cfg.Server, logger)
	go func() {
		if err := srv.Start(cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Workers ----
	expiryWorker := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, subUC, logger)
	go func() { _ = expiryWorker.Run(ctx) }()

	notifWorker := sched.NewNotificationWorker(cfg.Users.RetryInterval, notifUC, logger)
	go func() { _ = notifWorker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()
	_ = srv.Shutdown(context.Background())
}

// newGateway picks the billing gateway: Stripe normally, noop in dev mode so
// the service runs without processor credentials.
func newGateway(cfg *config.Config) (adapter.BillingGateway, error) {
	if cfg.Runtime.Dev && cfg.Stripe.SecretKey == "sk_test_noop" {
		return billingAdapter.NewNoopGateway(), nil
	}
	return billingAdapter.NewStripeGateway(cfg.Stripe)
}
