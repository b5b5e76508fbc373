package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"

	"picturas-subscriptions/internal/config"
	"picturas-subscriptions/internal/domain/model"
	"picturas-subscriptions/internal/infra/db/postgres"
	"picturas-subscriptions/internal/infra/redis"
)

// This script sets up a clean, predictable database state for manual
// end-to-end testing.
func main() {
	ctx := context.Background()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	if err := postgres.RunMigrations(cfg.Database.MigrationsDir, cfg.Database.URL); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	log.Println("[1/3] Wiping Redis state...")
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Fatalf("failed to flush redis: %v", err)
	}

	log.Println("[2/3] Wiping all existing database data...")
	_, err = pool.Exec(ctx, `
		TRUNCATE subscriptions, processed_events, role_notifications
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	log.Println("[3/3] Seeding a known active subscription...")
	subRepo := postgres.NewSubscriptionRepo(pool)
	sub, err := model.NewPendingSubscription(uuid.NewString(), "00000000-0000-0000-0000-000000000001", "cs_test_seed", 1000, 30*24*time.Hour)
	if err != nil {
		log.Fatalf("seed subscription: %v", err)
	}
	extID := "sub_test_seed"
	sub.ExternalSubID = &extID
	sub.Status = model.SubscriptionStatusActive
	if err := subRepo.Upsert(ctx, nil, sub); err != nil {
		log.Fatalf("failed to seed subscription: %v", err)
	}

	log.Println("--- E2E Environment Setup Complete ---")
}
