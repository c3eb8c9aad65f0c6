package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/recordsdir/directory-backend/internal/db/interfaces"
	"github.com/recordsdir/directory-backend/internal/db/query"
)

// Repository implements the Repository interface for one SQL table
type Repository struct {
	db        *Database
	schema    *interfaces.Schema
	validator *query.Builder
	columns   []string
	table     string
}

// NewRepository creates a new SQL repository
func NewRepository(db *Database, schema *interfaces.Schema) *Repository {
	return &Repository{
		db:        db,
		schema:    schema,
		validator: query.NewBuilder(schema),
		columns:   schema.Columns(),
		table:     quote(schema.TableName),
	}
}

func (r *Repository) compiler() *compiler {
	return &compiler{dialect: r.db.cfg.Dialect, schema: r.schema}
}

// GetByID retrieves a single record by its ID
func (r *Repository) GetByID(ctx context.Context, id interfaces.ID) (map[string]interface{}, error) {
	q, err := r.db.querier(ctx)
	if err != nil {
		return nil, err
	}

	c := r.compiler()
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		quoteAll(r.columns), r.table, quote("id"), c.bind(id.String()))

	records, err := r.query(ctx, q, r.columns, stmt, c.args)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return records[0], nil
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
	if q == nil {
		q = &interfaces.Query{}
	}

	conn, err := r.db.querier(ctx)
	if err != nil {
		return nil, err
	}

	c := r.compiler()
	where, err := c.where(q.Where)
	if err != nil {
		return nil, err
	}

	total, err := r.count(ctx, conn, where, c.args)
	if err != nil {
		return nil, err
	}

	columns := r.columns
	if len(q.Select) > 0 {
		columns = q.Select
		for _, name := range columns {
			if _, err := c.column(name); err != nil {
				return nil, err
			}
		}
	}

	orderBy, err := c.orderBy(q.OrderBy)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", quoteAll(columns), r.table)
	if where != "" {
		b.WriteString(" WHERE " + where)
	}
	b.WriteString(" ORDER BY " + orderBy)
	switch {
	case q.Limit != nil:
		b.WriteString(" LIMIT " + strconv.Itoa(*q.Limit))
	case q.Offset != nil:
		b.WriteString(" LIMIT " + r.db.cfg.Dialect.noLimit())
	}
	if q.Offset != nil {
		b.WriteString(" OFFSET " + strconv.Itoa(*q.Offset))
	}

	records, err := r.query(ctx, conn, columns, b.String(), c.args)
	if err != nil {
		return nil, err
	}

	offset := 0
	if q.Offset != nil {
		offset = *q.Offset
	}
	pageSize := int(total) - offset
	if pageSize < 0 {
		pageSize = 0
	}
	if q.Limit != nil {
		pageSize = *q.Limit
	}
	page := 1
	if pageSize > 0 {
		page = (offset / pageSize) + 1
	}

	return &interfaces.ResultPage{
		Data:     records,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Create inserts a new record
func (r *Repository) Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	if err := r.validator.ValidateData(data); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	rec := make(map[string]interface{}, len(r.columns))
	for k, v := range data {
		rec[k] = v
	}
	if id, exists := rec["id"]; !exists || id == nil || id == "" {
		rec["id"] = uuid.New().String()
	}
	now := time.Now().UTC()
	rec["created_at"] = now
	rec["updated_at"] = now
	for fieldName, fieldSchema := range r.schema.Fields {
		if _, exists := rec[fieldName]; !exists {
			rec[fieldName] = fieldSchema.DefaultValue
		}
	}

	conn, err := r.db.querier(ctx)
	if err != nil {
		return nil, err
	}

	c := r.compiler()
	for name := range rec {
		if _, err := c.column(name); err != nil {
			return nil, err
		}
	}
	placeholders := make([]string, 0, len(r.columns))
	for _, name := range r.columns {
		placeholders = append(placeholders, c.bind(rec[name]))
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.table, quoteAll(r.columns), strings.Join(placeholders, ", "))
	if _, err := conn.ExecContext(ctx, stmt, c.args...); err != nil {
		return nil, r.mapError("insert", err)
	}

	return normalize(rec), nil
}

// Update modifies an existing record by ID
func (r *Repository) Update(ctx context.Context, id interfaces.ID, data map[string]interface{}) (map[string]interface{}, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	for k, v := range data {
		if k == "id" || k == "created_at" {
			continue
		}
		existing[k] = v
	}
	existing["updated_at"] = time.Now().UTC()

	if err := r.validator.ValidateData(existing); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	conn, err := r.db.querier(ctx)
	if err != nil {
		return nil, err
	}

	c := r.compiler()
	for name := range existing {
		if _, err := c.column(name); err != nil {
			return nil, err
		}
	}
	sets := make([]string, 0, len(r.columns))
	for _, name := range r.columns {
		if name == "id" || name == "created_at" {
			continue
		}
		sets = append(sets, quote(name)+" = "+c.bind(existing[name]))
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		r.table, strings.Join(sets, ", "), quote("id"), c.bind(id.String()))
	res, err := conn.ExecContext(ctx, stmt, c.args...)
	if err != nil {
		return nil, r.mapError("update", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, interfaces.ErrNotFound
	}

	return normalize(existing), nil
}

// Upsert inserts or updates based on unique field constraints
func (r *Repository) Upsert(ctx context.Context, uniqueFields map[string]interface{}, data map[string]interface{}) (map[string]interface{}, error) {
	q := &interfaces.Query{
		Where: &interfaces.Filters{
			Conditions: make([]interfaces.Filter, 0, len(uniqueFields)),
		},
	}
	for field, value := range uniqueFields {
		q.Where.Conditions = append(q.Where.Conditions, interfaces.Filter{Field: field, Value: value})
	}

	existing, err := r.FindOne(ctx, q)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return r.Update(ctx, interfaces.StringID(existing["id"].(string)), data)
	}

	createData := make(map[string]interface{}, len(data)+len(uniqueFields))
	for k, v := range data {
		createData[k] = v
	}
	for k, v := range uniqueFields {
		createData[k] = v
	}
	return r.Create(ctx, createData)
}

// Delete removes a record by ID
func (r *Repository) Delete(ctx context.Context, id interfaces.ID) error {
	conn, err := r.db.querier(ctx)
	if err != nil {
		return err
	}

	c := r.compiler()
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", r.table, quote("id"), c.bind(id.String()))
	res, err := conn.ExecContext(ctx, stmt, c.args...)
	if err != nil {
		return r.mapError("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &interfaces.DatabaseError{Op: "delete", Err: err}
	}
	if n == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

// Count returns the number of records matching the query
func (r *Repository) Count(ctx context.Context, q *interfaces.Query) (int64, error) {
	conn, err := r.db.querier(ctx)
	if err != nil {
		return 0, err
	}

	c := r.compiler()
	where := ""
	if q != nil {
		if where, err = c.where(q.Where); err != nil {
			return 0, err
		}
	}
	return r.count(ctx, conn, where, c.args)
}

// GetSchema returns the schema for this repository
func (r *Repository) GetSchema() *interfaces.Schema {
	return r.schema
}

func (r *Repository) count(ctx context.Context, conn querier, where string, args []interface{}) (int64, error) {
	stmt := "SELECT COUNT(*) FROM " + r.table
	if where != "" {
		stmt += " WHERE " + where
	}

	rows, err := conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return 0, r.mapError("count", err)
	}
	defer rows.Close()

	var total int64
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			return 0, &interfaces.DatabaseError{Op: "count", Err: err}
		}
	}
	return total, rows.Err()
}

func (r *Repository) query(ctx context.Context, conn querier, columns []string, stmt string, args []interface{}) ([]map[string]interface{}, error) {
	rows, err := conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, r.mapError("select", err)
	}
	defer rows.Close()

	records := []map[string]interface{}{}
	for rows.Next() {
		record, err := r.scan(rows, columns)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &interfaces.DatabaseError{Op: "select", Err: err}
	}
	return records, nil
}

func (r *Repository) scan(rows *sql.Rows, columns []string) (map[string]interface{}, error) {
	values := make([]interface{}, len(columns))
	dest := make([]interface{}, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, &interfaces.DatabaseError{Op: "scan", Err: err}
	}

	record := make(map[string]interface{}, len(columns))
	for i, name := range columns {
		v, err := decode(name, r.schema.Fields[name], values[i])
		if err != nil {
			return nil, &interfaces.DatabaseError{Op: "scan", Err: err}
		}
		record[name] = v
	}
	return record, nil
}

func (r *Repository) mapError(op string, err error) error {
	if r.db.cfg.Dialect.isUniqueViolation(err) {
		return fmt.Errorf("%w: %s on %s: %v", interfaces.ErrUniqueConstraint, op, r.schema.TableName, err)
	}
	return &interfaces.DatabaseError{Op: op, Err: err}
}

// normalize returns times in UTC so records match what a later read returns
func normalize(rec map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		out[k] = encode(v)
	}
	return out
}

func quoteAll(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}
