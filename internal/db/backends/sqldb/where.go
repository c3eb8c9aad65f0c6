package sqldb

import (
	"fmt"
	"strings"

	"github.com/recordsdir/directory-backend/internal/db/interfaces"
)

// compiler renders interfaces.Filters into a WHERE clause with bound arguments.
// The semantics follow query.Builder.MatchesFilters.
type compiler struct {
	dialect Dialect
	schema  *interfaces.Schema
	args    []interface{}
}

func (c *compiler) bind(v interface{}) string {
	c.args = append(c.args, encode(v))
	return c.dialect.placeholder(len(c.args))
}

func (c *compiler) column(name string) (string, error) {
	if _, ok := c.schema.Fields[name]; !ok {
		return "", fmt.Errorf("%w: unknown column '%s' on %s", interfaces.ErrInvalidQuery, name, c.schema.TableName)
	}
	return quote(name), nil
}

// where returns "" when filters impose no restriction
func (c *compiler) where(filters *interfaces.Filters) (string, error) {
	if filters == nil {
		return "", nil
	}

	var parts []string

	for _, and := range filters.AND {
		clause, err := c.where(and)
		if err != nil {
			return "", err
		}
		if clause != "" {
			parts = append(parts, "("+clause+")")
		}
	}

	if len(filters.OR) > 0 {
		var alternatives []string
		for _, or := range filters.OR {
			clause, err := c.where(or)
			if err != nil {
				return "", err
			}
			if clause == "" {
				clause = "1=1"
			}
			alternatives = append(alternatives, "("+clause+")")
		}
		parts = append(parts, "("+strings.Join(alternatives, " OR ")+")")
	}

	for _, condition := range filters.Conditions {
		clause, err := c.condition(condition)
		if err != nil {
			return "", err
		}
		parts = append(parts, clause)
	}

	return strings.Join(parts, " AND "), nil
}

func (c *compiler) condition(f interfaces.Filter) (string, error) {
	col, err := c.column(f.Field)
	if err != nil {
		return "", err
	}

	if f.Operator == nil {
		if f.Value == nil {
			return col + " IS NULL", nil
		}
		return col + " = " + c.bind(f.Value), nil
	}

	op := f.Operator
	switch {
	case op.IsNull:
		return col + " IS NULL", nil
	case op.IsNotNull:
		return col + " IS NOT NULL", nil
	case op.Eq != nil:
		return col + " = " + c.bind(op.Eq), nil
	case op.Ne != nil:
		return col + " <> " + c.bind(op.Ne), nil
	case op.Gt != nil:
		return col + " > " + c.bind(op.Gt), nil
	case op.Gte != nil:
		return col + " >= " + c.bind(op.Gte), nil
	case op.Lt != nil:
		return col + " < " + c.bind(op.Lt), nil
	case op.Lte != nil:
		return col + " <= " + c.bind(op.Lte), nil
	case len(op.In) > 0:
		return col + " IN (" + c.list(op.In) + ")", nil
	case len(op.NotIn) > 0:
		return "(" + col + " IS NOT NULL AND " + col + " NOT IN (" + c.list(op.NotIn) + "))", nil
	}

	caseSensitive := op.CaseSensitive == nil || *op.CaseSensitive
	if op.Like != "" {
		needle := c.bind(strings.ReplaceAll(op.Like, "%", ""))
		return c.dialect.contains(col, needle, caseSensitive), nil
	}
	if op.NotLike != "" {
		needle := c.bind(strings.ReplaceAll(op.NotLike, "%", ""))
		return "NOT (" + c.dialect.contains(col, needle, caseSensitive) + ")", nil
	}

	return "1=1", nil
}

func (c *compiler) list(values []interface{}) string {
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = c.bind(v)
	}
	return strings.Join(placeholders, ", ")
}

// orderBy always ends with the insertion sequence so equal keys keep
// insertion order
func (c *compiler) orderBy(orders []interfaces.OrderBy) (string, error) {
	terms := make([]string, 0, len(orders)+1)
	for _, o := range orders {
		col, err := c.column(o.Field)
		if err != nil {
			return "", err
		}
		if strings.EqualFold(o.Direction, interfaces.Desc) {
			terms = append(terms, col+" DESC NULLS LAST")
		} else {
			terms = append(terms, col+" ASC NULLS FIRST")
		}
	}
	terms = append(terms, quote(seqColumn))
	return strings.Join(terms, ", "), nil
}
