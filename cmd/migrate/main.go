package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/config"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	action := flag.String("action", "up", "Migration action: up, down, version, force")
	version := flag.Int("version", -1, "Target version (for force action)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DatabaseDriver != config.DriverPostgres {
		return fmt.Errorf("migrations apply to the postgres driver only; %s schemas are created on open", cfg.DatabaseDriver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.OpenSQL(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	log.Println("Connected to database")

	migrator, err := database.NewMigrator(db)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	switch *action {
	case "up":
		log.Println("Running migrations...")
		if err := migrator.Up(); err != nil {
			return err
		}
		log.Println("Migrations completed")

	case "down":
		log.Println("Rolling back last migration...")
		if err := migrator.Down(); err != nil {
			return err
		}
		log.Println("Migration rolled back")

	case "version":
		status, err := migrator.Status()
		if err != nil {
			return err
		}
		if status.Dirty {
			log.Printf("Current version: %d (DIRTY - migration incomplete)\n", status.Version)
		} else {
			log.Printf("Current version: %d\n", status.Version)
		}

	case "force":
		if *version < 0 {
			return fmt.Errorf("version flag is required for force action")
		}
		log.Printf("Forcing migration version %d...\n", *version)
		if err := migrator.Force(*version); err != nil {
			return err
		}
		log.Println("Migration version forced")

	default:
		return fmt.Errorf("invalid action: %s (use: up, down, version, force)", *action)
	}

	return nil
}
