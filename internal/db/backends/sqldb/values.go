package sqldb

import (
	"fmt"
	"strconv"
	"time"

	"github.com/recordsdir/directory-backend/internal/db/interfaces"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// encode converts a record value into a driver argument
func encode(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return v
}

// decode converts a scanned driver value into the Go type the schema declares
func decode(column string, field interfaces.FieldSchema, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	switch field.Type {
	case interfaces.TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil

	case interfaces.TypeBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", column, err)
			}
			return parsed, nil
		}

	case interfaces.TypeTime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case string:
			for _, layout := range timeLayouts {
				if parsed, err := time.Parse(layout, t); err == nil {
					return parsed.UTC(), nil
				}
			}
			return nil, fmt.Errorf("column %s: unrecognised time %q", column, t)
		}

	case interfaces.TypeInt:
		if n, ok := v.(int64); ok {
			return int(n), nil
		}
	case interfaces.TypeInt64:
		if n, ok := v.(int64); ok {
			return n, nil
		}
	case interfaces.TypeFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		}
	default:
		return v, nil
	}

	return nil, fmt.Errorf("column %s: cannot decode %T as %s", column, v, field.Type)
}
