package main

import (
	"flag"
	stdlog "log"
	"os"

	"github.com/wealthdesk/client-import-api/internal/config"
	"github.com/wealthdesk/client-import-api/internal/database"
	"github.com/wealthdesk/client-import-api/pkg/logger"
)

func main() {
	down := flag.Bool("down", false, "roll back the last migration")
	version := flag.Uint("version", 0, "migrate up or down to this version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.Log)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	path := cfg.Database.MigrationsPath
	switch {
	case *down:
		err = db.MigrateDown(path)
	case *version > 0:
		err = db.MigrateToVersion(path, *version)
	default:
		err = db.RunMigrations(path)
	}
	if err != nil {
		log.Error().Err(err).Msg("Migration failed")
		db.Close()
		os.Exit(1)
	}
}
