package main

// Applies the intake schema migrations (documents, summary_versions,
// user_settings) and exits. Intended for deploy pipelines:
//   go run ./cmd/migrate

import (
	"context"
	"log"
	"os"
	"time"

	"policydesk-backend/internal/shared/config"
	"policydesk-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}
	log.Printf("migrations applied")
}
