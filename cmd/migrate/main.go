// Command migrate applies or rolls back the Postgres schema.
//
//	migrate up
//	migrate down [-steps N]
//	migrate version
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bilgisen/autowriter/internal/config"
	"github.com/bilgisen/autowriter/internal/logger"
	"github.com/bilgisen/autowriter/internal/store/postgres"
)

func main() {
	steps := flag.Int("steps", 1, "number of migrations to roll back")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: migrate [-steps N] up|down|version")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Output: "stdout", Pretty: true}); err != nil {
		panic(err)
	}
	log := logger.Component("migrate")

	if cfg.DatabaseDriver != config.DriverPostgres {
		log.Fatal().Str("driver", cfg.DatabaseDriver).Msg("Migrations need DATABASE_DRIVER=postgres")
	}
	db, err := postgres.Open(cfg.DatabaseURL, 1)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	switch cmd := flag.Arg(0); cmd {
	case "up":
		applied, err := postgres.MigrateUp(db)
		if err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
		log.Info().Bool("applied", applied).Msg("Schema is current")
	case "down":
		if err := postgres.MigrateDown(db, *steps); err != nil {
			log.Fatal().Err(err).Msg("Rollback failed")
		}
		log.Info().Int("steps", *steps).Msg("Rolled back")
	case "version":
		version, dirty, err := postgres.MigrationVersion(db)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read version")
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Schema version")
	default:
		log.Fatal().Str("command", cmd).Msg("Unknown command")
	}
}
