package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/recordsdir/directory-backend/internal/config"
	"github.com/recordsdir/directory-backend/internal/db/backends/sqldb"
)

var (
	flags   = flag.NewFlagSet("migrate", flag.ExitOnError)
	timeout = flags.Duration("timeout", 2*time.Minute, "overall deadline for the command")
)

func main() {
	flags.Parse(os.Args[1:])
	args := flags.Args()

	if len(args) < 1 {
		log.Fatal("Usage: migrate [-timeout d] COMMAND\n\nCommands:\n  up\n  down\n  status\n  version")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dialect, err := sqldb.ParseDialect(cfg.Database.Type)
	if err != nil {
		log.Fatalf("Migrations need a SQL backend (DIR_DB_TYPE=postgres|sqlite): %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db := sqldb.NewDatabase(sqldb.Config{
		Dialect:      dialect,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}, nil)
	if err := db.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Disconnect(context.Background())

	provider, err := db.MigrationProvider()
	if err != nil {
		log.Fatalf("Failed to load migrations: %v", err)
	}

	command := args[0]
	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		for _, r := range results {
			fmt.Printf("OK   %s (%s)\n", r.Source.Path, r.Duration)
		}
		if len(results) == 0 {
			fmt.Println("no migrations to apply")
		}
	case "down":
		result, err := provider.Down(ctx)
		if err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		fmt.Printf("OK   %s (%s)\n", result.Source.Path, result.Duration)
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			log.Fatalf("Migration status failed: %v", err)
		}
		for _, s := range statuses {
			applied := "Pending"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%-25s %s\n", applied, s.Source.Path)
		}
	case "version":
		version, err := provider.GetDBVersion(ctx)
		if err != nil {
			log.Fatalf("Migration version failed: %v", err)
		}
		fmt.Printf("version %d\n", version)
	default:
		log.Fatalf("Unknown command: %s", command)
	}
}
