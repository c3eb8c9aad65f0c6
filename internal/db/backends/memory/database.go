package memory

import (
	"context"
	"sync"

	"github.com/recordsdir/directory-backend/internal/db/interfaces"
	"go.uber.org/zap"
)

var (
	ErrTransactionCompleted = interfaces.ErrTransactionCompleted
)

type record = map[string]interface{}

// table keeps rows by id plus their insertion order
type table struct {
	rows  map[string]record
	order []string
}

func newTable() *table {
	return &table{rows: make(map[string]record)}
}

func (t *table) insert(id string, r record) {
	t.rows[id] = r
	t.order = append(t.order, id)
}

func (t *table) remove(id string) {
	delete(t.rows, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// scan returns copies of all rows in insertion order
func (t *table) scan() []record {
	out := make([]record, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, copyRecord(t.rows[id]))
	}
	return out
}

func (t *table) clone() *table {
	c := &table{
		rows:  make(map[string]record, len(t.rows)),
		order: append([]string(nil), t.order...),
	}
	for id, r := range t.rows {
		c.rows[id] = copyRecord(r)
	}
	return c
}

func copyRecord(r record) record {
	c := make(record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Database implements the Database interface for in-memory storage
type Database struct {
	mu        sync.RWMutex
	tables    map[string]*table
	schemas   map[string]*interfaces.Schema
	connected bool
	logger    *zap.SugaredLogger
}

// NewDatabase creates a new in-memory database
func NewDatabase(logger *zap.SugaredLogger) *Database {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Database{
		tables:  make(map[string]*table),
		schemas: make(map[string]*interfaces.Schema),
		logger:  logger,
	}
}

// Connect establishes a connection to the database
func (db *Database) Connect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.connected = true
	db.logger.Infow("Connected to in-memory database")
	return nil
}

// Disconnect drops all data
func (db *Database) Disconnect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.connected = false
	db.tables = make(map[string]*table)
	db.schemas = make(map[string]*interfaces.Schema)
	db.logger.Infow("Disconnected from in-memory database")
	return nil
}

// IsHealthy checks if the database connection is healthy
func (db *Database) IsHealthy(ctx context.Context) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.connected
}

// Transaction runs fn against a snapshot that is restored if fn fails
func (db *Database) Transaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	if !db.IsHealthy(ctx) {
		return interfaces.ErrDatabaseNotConnected
	}

	tx := NewTransaction(db)

	defer func() {
		if !tx.IsCompleted() {
			tx.Rollback(ctx)
		}
	}()

	if err := fn(ctx, tx); err != nil {
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

// Migrate creates tables for the schemas
func (db *Database) Migrate(ctx context.Context, schemas []*interfaces.Schema) error {
	if !db.IsHealthy(ctx) {
		return interfaces.ErrDatabaseNotConnected
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	for _, schema := range schemas {
		db.schemas[schema.TableName] = schema

		if _, exists := db.tables[schema.TableName]; !exists {
			db.tables[schema.TableName] = newTable()
			db.logger.Debugw("Created in-memory table", "table", schema.TableName)
		}
	}

	db.logger.Infow("Migration completed", "schemas", len(schemas))
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

// GetTables returns all table names
func (db *Database) GetTables() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	return names
}

// GetTableData returns a copy of a table's rows keyed by id
func (db *Database) GetTableData(tableName string) map[string]map[string]interface{} {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, exists := db.tables[tableName]
	if !exists {
		return nil
	}

	result := make(map[string]map[string]interface{}, len(t.rows))
	for id, r := range t.rows {
		result[id] = copyRecord(r)
	}
	return result
}

// Clear removes all data from all tables
func (db *Database) Clear() {
	db.mu.Lock()
	defer db.mu.Unlock()

	for name := range db.tables {
		db.tables[name] = newTable()
	}
}

// tableLocked returns the named table, creating it on first use. Caller holds mu.
func (db *Database) tableLocked(name string) *table {
	t, exists := db.tables[name]
	if !exists {
		t = newTable()
		db.tables[name] = t
	}
	return t
}
