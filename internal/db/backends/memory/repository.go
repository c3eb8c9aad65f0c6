package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/recordsdir/directory-backend/internal/db/interfaces"
	"github.com/recordsdir/directory-backend/internal/db/query"
)

// Repository implements the Repository interface for in-memory storage
type Repository struct {
	db        *Database
	schema    *interfaces.Schema
	builder   *query.Builder
	tableName string
}

// NewRepository creates a new in-memory repository
func NewRepository(db *Database, schema *interfaces.Schema) *Repository {
	return &Repository{
		db:        db,
		schema:    schema,
		builder:   query.NewBuilder(schema),
		tableName: schema.TableName,
	}
}

// GetByID retrieves a single record by its ID
func (r *Repository) GetByID(ctx context.Context, id interfaces.ID) (map[string]interface{}, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t, exists := r.db.tables[r.tableName]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	rec, exists := t.rows[id.String()]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	return copyRecord(rec), nil
}

// FindOne retrieves the first record matching the query
func (r *Repository) FindOne(ctx context.Context, q *interfaces.Query) (map[string]interface{}, error) {
	scoped := interfaces.Query{}
	if q != nil {
		scoped = *q
	}
	limit := 1
	scoped.Limit = &limit

	result, err := r.FindMany(ctx, &scoped)
	if err != nil {
		return nil, err
	}

	if len(result.Data) == 0 {
		return nil, interfaces.ErrNotFound
	}

	return result.Data[0], nil
}

// FindMany retrieves records matching the query. Without OrderBy records come
// back in insertion order.
func (r *Repository) FindMany(ctx context.Context, q *interfaces.Query) (*interfaces.ResultPage, error) {
	r.db.mu.RLock()
	var records []map[string]interface{}
	if t, exists := r.db.tables[r.tableName]; exists {
		records = t.scan()
	}
	r.db.mu.RUnlock()

	return r.builder.Apply(records, q), nil
}

// Create inserts a new record
func (r *Repository) Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	if err := r.builder.ValidateData(data); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	rec := copyRecord(data)

	if id, exists := rec["id"]; !exists || id == nil || id == "" {
		rec["id"] = uuid.New().String()
	}

	now := time.Now().UTC()
	rec["created_at"] = now
	rec["updated_at"] = now

	for fieldName, fieldSchema := range r.schema.Fields {
		if _, exists := rec[fieldName]; !exists && fieldSchema.DefaultValue != nil {
			rec[fieldName] = fieldSchema.DefaultValue
		}
	}

	id, ok := rec["id"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: id must be a string", interfaces.ErrInvalidQuery)
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t := r.db.tableLocked(r.tableName)

	if _, exists := t.rows[id]; exists {
		return nil, fmt.Errorf("%w: record with id '%s' already exists", interfaces.ErrUniqueConstraint, id)
	}

	if err := r.validateUniqueConstraints(t, rec, ""); err != nil {
		return nil, err
	}

	if err := r.validateForeignKeyConstraints(rec); err != nil {
		return nil, err
	}

	t.insert(id, rec)

	return copyRecord(rec), nil
}

// Update modifies an existing record by ID
func (r *Repository) Update(ctx context.Context, id interfaces.ID, data map[string]interface{}) (map[string]interface{}, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, exists := r.db.tables[r.tableName]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	existing, exists := t.rows[id.String()]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	updated := copyRecord(existing)
	for k, v := range data {
		if k == "id" || k == "created_at" {
			continue
		}
		updated[k] = v
	}
	updated["updated_at"] = time.Now().UTC()

	if err := r.builder.ValidateData(updated); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	if err := r.validateUniqueConstraints(t, updated, id.String()); err != nil {
		return nil, err
	}

	if err := r.validateForeignKeyConstraints(updated); err != nil {
		return nil, err
	}

	t.rows[id.String()] = updated

	return copyRecord(updated), nil
}

// Upsert inserts or updates based on unique field constraints
func (r *Repository) Upsert(ctx context.Context, uniqueFields map[string]interface{}, data map[string]interface{}) (map[string]interface{}, error) {
	q := &interfaces.Query{
		Where: &interfaces.Filters{
			Conditions: make([]interfaces.Filter, 0, len(uniqueFields)),
		},
	}

	for field, value := range uniqueFields {
		q.Where.Conditions = append(q.Where.Conditions, interfaces.Filter{
			Field: field,
			Value: value,
		})
	}

	existing, err := r.FindOne(ctx, q)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		id := existing["id"].(string)
		return r.Update(ctx, interfaces.StringID(id), data)
	}

	createData := copyRecord(data)
	for k, v := range uniqueFields {
		createData[k] = v
	}

	return r.Create(ctx, createData)
}

// Delete removes a record by ID
func (r *Repository) Delete(ctx context.Context, id interfaces.ID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, exists := r.db.tables[r.tableName]
	if !exists {
		return interfaces.ErrNotFound
	}

	rec, exists := t.rows[id.String()]
	if !exists {
		return interfaces.ErrNotFound
	}

	if err := r.validateForeignKeyConstraintsOnDelete(rec); err != nil {
		return err
	}

	t.remove(id.String())
	return nil
}

// Count returns the number of records matching the query
func (r *Repository) Count(ctx context.Context, q *interfaces.Query) (int64, error) {
	if q == nil {
		r.db.mu.RLock()
		defer r.db.mu.RUnlock()
		if t, exists := r.db.tables[r.tableName]; exists {
			return int64(len(t.rows)), nil
		}
		return 0, nil
	}

	result, err := r.FindMany(ctx, &interfaces.Query{Where: q.Where})
	if err != nil {
		return 0, err
	}

	return result.Total, nil
}

// GetSchema returns the schema for this repository
func (r *Repository) GetSchema() *interfaces.Schema {
	return r.schema
}

// Constraint checks below run with db.mu held

func (r *Repository) validateUniqueConstraints(t *table, rec map[string]interface{}, excludeID string) error {
	for fieldName, fieldSchema := range r.schema.Fields {
		if !fieldSchema.Unique {
			continue
		}

		value, exists := rec[fieldName]
		if !exists || value == nil {
			continue
		}

		for id, existing := range t.rows {
			if id == excludeID {
				continue
			}
			if existingValue, exists := existing[fieldName]; exists && existingValue == value {
				return fmt.Errorf("%w: field '%s' value '%v'", interfaces.ErrUniqueConstraint, fieldName, value)
			}
		}
	}

	for _, index := range r.schema.Indexes {
		if !index.Unique {
			continue
		}

		for id, existing := range t.rows {
			if id == excludeID {
				continue
			}
			match := true
			for _, column := range index.Columns {
				if rec[column] != existing[column] {
					match = false
					break
				}
			}
			if match {
				return fmt.Errorf("%w: unique index '%s'", interfaces.ErrUniqueConstraint, index.Name)
			}
		}
	}

	return nil
}

func (r *Repository) validateForeignKeyConstraints(rec map[string]interface{}) error {
	for fieldName, fieldSchema := range r.schema.Fields {
		if fieldSchema.ForeignKey == nil {
			continue
		}

		value, exists := rec[fieldName]
		if !exists || value == nil {
			continue
		}

		refTable, exists := r.db.tables[fieldSchema.ForeignKey.Table]
		if !exists {
			return fmt.Errorf("%w: referenced table '%s' does not exist", interfaces.ErrForeignKeyConstraint, fieldSchema.ForeignKey.Table)
		}

		found := false
		for _, refRecord := range refTable.rows {
			if refValue, exists := refRecord[fieldSchema.ForeignKey.Column]; exists && refValue == value {
				found = true
				break
			}
		}

		if !found {
			return fmt.Errorf("%w: field '%s' references non-existent record '%v'", interfaces.ErrForeignKeyConstraint, fieldName, value)
		}
	}

	return nil
}

// validateForeignKeyConstraintsOnDelete rejects deleting a row that a
// declared foreign key in another schema still points at. Undeclared
// references are weak and never block deletion.
func (r *Repository) validateForeignKeyConstraintsOnDelete(rec map[string]interface{}) error {
	for tableName, schema := range r.db.schemas {
		t, exists := r.db.tables[tableName]
		if !exists {
			continue
		}
		for fieldName, fieldSchema := range schema.Fields {
			fk := fieldSchema.ForeignKey
			if fk == nil || fk.Table != r.tableName {
				continue
			}
			target := rec[fk.Column]
			for _, row := range t.rows {
				if row[fieldName] == target {
					return fmt.Errorf("%w: record is referenced by table '%s', field '%s'", interfaces.ErrForeignKeyConstraint, tableName, fieldName)
				}
			}
		}
	}

	return nil
}
