// Package sqldb implements the database interfaces over database/sql for
// PostgreSQL (pgx) and SQLite (modernc). Schemas are created by the embedded
// goose migrations.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/recordsdir/directory-backend/internal/db/interfaces"
	"github.com/recordsdir/directory-backend/internal/db/migrations"
	"go.uber.org/zap"
)

// seqColumn orders rows by insertion; it is never part of a record
const seqColumn = "seq"

// Config holds the connection settings for a SQL backend
type Config struct {
	Dialect      Dialect
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Database implements the Database interface over database/sql
type Database struct {
	mu      sync.RWMutex
	sqlDB   *sql.DB
	cfg     Config
	schemas map[string]*interfaces.Schema
	logger  *zap.SugaredLogger
}

// NewDatabase creates a SQL database; call Connect before use
func NewDatabase(cfg Config, logger *zap.SugaredLogger) *Database {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Database{
		cfg:     cfg,
		schemas: make(map[string]*interfaces.Schema),
		logger:  logger,
	}
}

// Dialect reports the configured SQL dialect
func (db *Database) Dialect() Dialect {
	return db.cfg.Dialect
}

// Connect opens the pool and verifies it with a ping
func (db *Database) Connect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.sqlDB != nil {
		return nil
	}

	if db.cfg.Dialect == SQLite {
		if err := ensureDir(db.cfg.DSN); err != nil {
			return err
		}
	}

	conn, err := sql.Open(db.cfg.Dialect.driverName(), db.cfg.DSN)
	if err != nil {
		return &interfaces.DatabaseError{Op: "open", Err: err}
	}

	switch db.cfg.Dialect {
	case SQLite:
		// single writer; also keeps ":memory:" on one connection
		conn.SetMaxOpenConns(1)
		if _, err := conn.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
			conn.Close()
			return &interfaces.DatabaseError{Op: "configure sqlite", Err: err}
		}
	default:
		if db.cfg.MaxOpenConns > 0 {
			conn.SetMaxOpenConns(db.cfg.MaxOpenConns)
		}
		if db.cfg.MaxIdleConns > 0 {
			conn.SetMaxIdleConns(db.cfg.MaxIdleConns)
		}
		conn.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return &interfaces.DatabaseError{Op: "ping", Err: err}
	}

	db.sqlDB = conn
	db.logger.Infow("Connected to SQL database", "dialect", db.cfg.Dialect)
	return nil
}

// Disconnect closes the pool
func (db *Database) Disconnect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.sqlDB == nil {
		return nil
	}
	err := db.sqlDB.Close()
	db.sqlDB = nil
	db.logger.Infow("Disconnected from SQL database", "dialect", db.cfg.Dialect)
	return err
}

// IsHealthy pings the database
func (db *Database) IsHealthy(ctx context.Context) bool {
	db.mu.RLock()
	conn := db.sqlDB
	db.mu.RUnlock()

	if conn == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return conn.PingContext(ctx) == nil
}

// Transaction runs fn inside a SQL transaction carried by the ctx passed to
// fn. A ctx that already carries a transaction joins it.
func (db *Database) Transaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	if existing, ok := ctx.Value(txKey{}).(*Transaction); ok {
		return fn(ctx, existing)
	}

	conn, err := db.pool()
	if err != nil {
		return err
	}

	sqlTx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return &interfaces.DatabaseError{Op: "begin", Err: err}
	}
	tx := &Transaction{tx: sqlTx}
	txCtx := context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if !tx.IsCompleted() {
			tx.Rollback(ctx)
		}
	}()

	if err := fn(txCtx, tx); err != nil {
		tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

// Repository returns a repository for the given schema
func (db *Database) Repository(schema *interfaces.Schema) interfaces.Repository {
	db.mu.Lock()
	db.schemas[schema.TableName] = schema
	db.mu.Unlock()

	return NewRepository(db, schema)
}

// Migrate applies the embedded goose migrations for the dialect. The schemas
// are registered for later repository use.
func (db *Database) Migrate(ctx context.Context, schemas []*interfaces.Schema) error {
	provider, err := db.MigrationProvider()
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		db.logger.Debugw("Applied migration", "source", r.Source.Path, "duration", r.Duration)
	}

	db.mu.Lock()
	for _, schema := range schemas {
		db.schemas[schema.TableName] = schema
	}
	db.mu.Unlock()

	db.logger.Infow("Migration completed", "applied", len(results), "schemas", len(schemas))
	return nil
}

// Seed inserts initial data into the database
func (db *Database) Seed(ctx context.Context, schema *interfaces.Schema, data []map[string]interface{}) error {
	if !db.IsHealthy(ctx) {
		return interfaces.ErrDatabaseNotConnected
	}

	repo := db.Repository(schema)

	seeded := 0
	for i, r := range data {
		if _, err := repo.Create(ctx, r); err != nil {
			db.logger.Warnw("Failed to seed record", "index", i, "table", schema.TableName, "error", err)
			continue
		}
		seeded++
	}

	db.logger.Infow("Seeded table", "table", schema.TableName, "records", seeded)
	return nil
}

// MigrationProvider returns a goose provider over the embedded migrations for
// the dialect, bound to the open pool. The migrate command drives it directly.
func (db *Database) MigrationProvider() (*goose.Provider, error) {
	conn, err := db.pool()
	if err != nil {
		return nil, err
	}

	fsys, err := migrations.FS(db.cfg.Dialect.migrationsDir())
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}

	provider, err := goose.NewProvider(db.cfg.Dialect.gooseDialect(), conn, fsys)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	return provider, nil
}

func (db *Database) pool() (*sql.DB, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.sqlDB == nil {
		return nil, interfaces.ErrDatabaseNotConnected
	}
	return db.sqlDB, nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// querier returns the transaction carried by ctx, or the pool
func (db *Database) querier(ctx context.Context) (querier, error) {
	if tx, ok := ctx.Value(txKey{}).(*Transaction); ok {
		return tx.tx, nil
	}
	return db.pool()
}

func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}
