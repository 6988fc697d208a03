// Command seed applies a YAML fixture (see configs/seed.example.yaml) to the
// configured database, running migrations first.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/clinic-attendance-api/internal/repository"
	"github.com/noah-isme/clinic-attendance-api/internal/seed"
	"github.com/noah-isme/clinic-attendance-api/pkg/config"
	"github.com/noah-isme/clinic-attendance-api/pkg/database"
	"github.com/noah-isme/clinic-attendance-api/pkg/logger"
)

func main() {
	path := flag.String("file", "configs/seed.example.yaml", "seed fixture to apply")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	fx, err := seed.Load(*path)
	if err != nil {
		logr.Fatal("invalid seed file", zap.String("file", *path), zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if _, err := database.Migrate(ctx, db); err != nil {
		logr.Fatal("failed to apply migrations", zap.Error(err))
	}

	seeder := seed.NewSeeder(
		repository.NewEmployeeRepository(db),
		repository.NewRosterRepository(db),
		repository.NewUserRepository(db),
		logr,
	)
	sum, err := seeder.Apply(ctx, fx)
	if err != nil {
		logr.Fatal("seed failed", zap.Error(err))
	}
	logr.Info("seed applied",
		zap.Int("divisions", sum.Divisions),
		zap.Int("templates", sum.Templates),
		zap.Int("employees", sum.Employees),
		zap.Int("users", sum.Users),
		zap.Int("grants", sum.Grants),
	)
}
