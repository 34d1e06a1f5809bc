package main

import (
	"context"
	"database/sql"
	"flag"

	_ "github.com/lib/pq"

	"newsimpact/internal/adapters/config"
	devseeds "newsimpact/internal/seeds/dev"
	"newsimpact/internal/seeds/macro"
	stagingseeds "newsimpact/internal/seeds/staging"
	testseeds "newsimpact/internal/seeds/test"
	"newsimpact/internal/testsupport/seeds"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

type seedFunc func(context.Context, *seeds.Seeder) error

func main() {
	env := flag.String("env", "dev", "Environment: dev, staging, test")
	dryRun := flag.Bool("dry-run", false, "List seed functions without executing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	log.Infow("Starting seeder",
		"environment", *env,
		"dry_run", *dryRun,
		"database", cfg.Postgres.Database,
	)

	seedFuncs := getSeedFunctions(*env)
	if len(seedFuncs) == 0 {
		log.Warnw("No seeds available for environment", "environment", *env)
		return
	}

	log.Infow("Found seed functions", "environment", *env, "count", len(seedFuncs))

	if *dryRun {
		log.Info("Dry-run mode: seed functions validated")
		return
	}

	db, err := connectDB(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	ctx := context.Background()
	seeder := seeds.New(db).WithContext(ctx)

	for i, fn := range seedFuncs {
		log.Infow("Executing seed", "step", i+1, "total", len(seedFuncs))

		if err := fn(ctx, seeder); err != nil {
			log.Errorw("Failed to execute seed",
				"step", i+1,
				"error", err,
			)
			return
		}
	}

	log.Info("All seeds applied successfully")
}

func connectDB(cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns / 2)

	return db, nil
}

// getSeedFunctions returns seed functions for the given environment.
// Mappings come before articles so discovery can resolve benchmarks.
func getSeedFunctions(env string) []seedFunc {
	switch env {
	case "dev":
		return []seedFunc{
			devseeds.SeedTickers,
			macro.SeedCalendar,
			devseeds.SeedEarnings,
			devseeds.SeedArticles,
		}
	case "test":
		return []seedFunc{
			testseeds.SeedTickers,
		}
	case "staging":
		return []seedFunc{
			stagingseeds.SeedBenchmarks,
			macro.SeedCalendar,
		}
	default:
		return nil
	}
}
