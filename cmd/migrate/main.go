// migrate applies the embedded access store migrations; run with go run ./cmd/migrate.
package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"poolfi/backend/internal/config"
	"poolfi/backend/internal/db/migrate"
	"poolfi/backend/internal/logging"
)

func main() {
	direction := flag.String("direction", migrate.DirectionUp, "Migration direction: up or down")
	version := flag.Bool("version", false, "Print the applied schema version and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logging.New(cfg.Env, cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	if *version {
		v, dirty, err := migrate.Version(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.WithFields(logrus.Fields{"version": v, "dirty": dirty}).Info("schema version")
		return
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		log.Fatalf("migrate %s: %v", *direction, err)
	}
	log.WithField("direction", *direction).Info("migrations applied")
}
