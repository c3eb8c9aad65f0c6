package db

import (
	"context"
	"fmt"

	"github.com/recordsdir/directory-backend/internal/db/backends/memory"
	"github.com/recordsdir/directory-backend/internal/db/backends/sqldb"
	"github.com/recordsdir/directory-backend/internal/db/entities"
	"github.com/recordsdir/directory-backend/internal/db/interfaces"
	"go.uber.org/zap"
)

// Config holds database configuration
type Config struct {
	Type         string // "memory", "postgres", "sqlite"
	DSN          string // Data Source Name / Connection String
	MaxOpenConns int    // Maximum open connections (for SQL backends)
	MaxIdleConns int    // Maximum idle connections (for SQL backends)
}

// NewDatabase creates a new database instance based on configuration
func NewDatabase(config *Config, logger *zap.SugaredLogger) (interfaces.Database, error) {
	if config == nil {
		config = &Config{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	switch config.Type {
	case "", "memory":
		logger.Infow("Using in-memory database")
		return memory.NewDatabase(logger), nil
	case "postgres", "sqlite":
		if config.DSN == "" {
			return nil, fmt.Errorf("database type %s requires a DSN", config.Type)
		}
		dialect, err := sqldb.ParseDialect(config.Type)
		if err != nil {
			return nil, err
		}
		logger.Infow("Using SQL database", "dialect", dialect)
		return sqldb.NewDatabase(sqldb.Config{
			Dialect:      dialect,
			DSN:          config.DSN,
			MaxOpenConns: config.MaxOpenConns,
			MaxIdleConns: config.MaxIdleConns,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}
}

// NewInMemoryDatabase creates a new in-memory database instance
func NewInMemoryDatabase() interfaces.Database {
	return memory.NewDatabase(nil)
}

// ConnectAndMigrate connects to the database and runs migrations
func ConnectAndMigrate(ctx context.Context, db interfaces.Database, schemas []*interfaces.Schema) error {
	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if !db.IsHealthy(ctx) {
		return fmt.Errorf("database health check failed")
	}

	if err := db.Migrate(ctx, schemas); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// SeedFixtures loads the sample countries and the persons that reference them
// in one transaction. It is a no-op when countries already exist.
func SeedFixtures(ctx context.Context, db interfaces.Database) (int, error) {
	countries := db.Repository(entities.CountrySchema)
	persons := db.Repository(entities.PersonSchema)

	seeded := 0
	err := db.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		existing, err := countries.Count(ctx, nil)
		if err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		ids := make(map[string]string, len(CountryFixtures))
		for _, fixture := range CountryFixtures {
			rec, err := countries.Create(ctx, fixture)
			if err != nil {
				return fmt.Errorf("seed country %v: %w", fixture["name"], err)
			}
			ids[rec["name"].(string)] = rec["id"].(string)
			seeded++
		}

		for _, fixture := range PersonFixtures(ids) {
			if _, err := persons.Create(ctx, fixture); err != nil {
				return fmt.Errorf("seed person %v: %w", fixture["name"], err)
			}
			seeded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seeded, nil
}
