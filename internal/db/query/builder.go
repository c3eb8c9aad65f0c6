package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/recordsdir/directory-backend/internal/db/interfaces"
)

// Builder evaluates queries over materialized records for one schema
type Builder struct {
	schema *interfaces.Schema
}

// NewBuilder creates a new query builder for a schema
func NewBuilder(schema *interfaces.Schema) *Builder {
	return &Builder{schema: schema}
}

// Apply filters, sorts, paginates and projects records. Records must already
// be in the backend's natural (insertion) order.
func (b *Builder) Apply(records []map[string]interface{}, q *interfaces.Query) *interfaces.ResultPage {
	if q == nil {
		q = &interfaces.Query{}
	}

	if q.Where != nil {
		filtered := make([]map[string]interface{}, 0, len(records))
		for _, record := range records {
			if b.MatchesFilters(record, q.Where) {
				filtered = append(filtered, record)
			}
		}
		records = filtered
	}

	total := int64(len(records))

	if len(q.OrderBy) > 0 {
		records = b.ApplySort(records, q.OrderBy)
	}

	offset := 0
	if q.Offset != nil {
		offset = *q.Offset
	}
	pageSize := len(records)
	if q.Limit != nil {
		pageSize = *q.Limit
	}

	records = b.ApplyPagination(records, q.Limit, q.Offset)

	if len(q.Select) > 0 {
		projected := make([]map[string]interface{}, 0, len(records))
		for _, record := range records {
			row := make(map[string]interface{}, len(q.Select))
			for _, field := range q.Select {
				if value, exists := record[field]; exists {
					row[field] = value
				}
			}
			projected = append(projected, row)
		}
		records = projected
	}

	page := 1
	if pageSize > 0 {
		page = (offset / pageSize) + 1
	}

	if records == nil {
		records = []map[string]interface{}{}
	}

	return &interfaces.ResultPage{
		Data:     records,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
}

// MatchesFilters checks if a record matches the given filters
func (b *Builder) MatchesFilters(record map[string]interface{}, filters *interfaces.Filters) bool {
	if filters == nil {
		return true
	}

	for _, andFilter := range filters.AND {
		if !b.MatchesFilters(record, andFilter) {
			return false
		}
	}

	if len(filters.OR) > 0 {
		hasMatch := false
		for _, orFilter := range filters.OR {
			if b.MatchesFilters(record, orFilter) {
				hasMatch = true
				break
			}
		}
		if !hasMatch {
			return false
		}
	}

	for _, condition := range filters.Conditions {
		if !b.matchesCondition(record, condition) {
			return false
		}
	}

	return true
}

func (b *Builder) matchesCondition(record map[string]interface{}, condition interfaces.Filter) bool {
	fieldValue, exists := record[condition.Field]

	if condition.Operator == nil {
		if !exists || fieldValue == nil {
			return condition.Value == nil
		}
		return b.compare(fieldValue, condition.Value) == 0 && sameKind(fieldValue, condition.Value)
	}

	op := condition.Operator

	if op.IsNull {
		return fieldValue == nil || !exists
	}
	if op.IsNotNull {
		return fieldValue != nil && exists
	}

	if !exists || fieldValue == nil {
		return false
	}

	if op.Eq != nil {
		return fieldValue == op.Eq
	}
	if op.Ne != nil {
		return fieldValue != op.Ne
	}

	if op.Gt != nil {
		return b.compare(fieldValue, op.Gt) > 0
	}
	if op.Gte != nil {
		return b.compare(fieldValue, op.Gte) >= 0
	}
	if op.Lt != nil {
		return b.compare(fieldValue, op.Lt) < 0
	}
	if op.Lte != nil {
		return b.compare(fieldValue, op.Lte) <= 0
	}

	if len(op.In) > 0 {
		for _, val := range op.In {
			if fieldValue == val {
				return true
			}
		}
		return false
	}
	if len(op.NotIn) > 0 {
		for _, val := range op.NotIn {
			if fieldValue == val {
				return false
			}
		}
		return true
	}

	caseSensitive := op.CaseSensitive == nil || *op.CaseSensitive
	if op.Like != "" {
		strValue, ok := fieldValue.(string)
		if !ok {
			return false
		}
		return containsPattern(strValue, op.Like, caseSensitive)
	}
	if op.NotLike != "" {
		strValue, ok := fieldValue.(string)
		if !ok {
			return true
		}
		return !containsPattern(strValue, op.NotLike, caseSensitive)
	}

	return true
}

func containsPattern(value, pattern string, caseSensitive bool) bool {
	pattern = strings.ReplaceAll(pattern, "%", "")
	if !caseSensitive {
		value = strings.ToLower(value)
		pattern = strings.ToLower(pattern)
	}
	return strings.Contains(value, pattern)
}

func sameKind(a, other interface{}) bool {
	return fmt.Sprintf("%T", a) == fmt.Sprintf("%T", other)
}

// compare orders two values of the same type. nil sorts before any value;
// mismatched types compare equal.
func (b *Builder) compare(a, other interface{}) int {
	switch {
	case a == nil && other == nil:
		return 0
	case a == nil:
		return -1
	case other == nil:
		return 1
	}

	switch av := a.(type) {
	case int:
		if bv, ok := other.(int); ok {
			return compareOrdered(av, bv)
		}
	case int64:
		if bv, ok := other.(int64); ok {
			return compareOrdered(av, bv)
		}
	case float64:
		if bv, ok := other.(float64); ok {
			return compareOrdered(av, bv)
		}
	case string:
		if bv, ok := other.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := other.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if bv, ok := other.(time.Time); ok {
			return av.Compare(bv)
		}
	}
	return 0
}

func compareOrdered[T int | int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ApplySort returns a stably sorted copy of records
func (b *Builder) ApplySort(records []map[string]interface{}, orderBy []interfaces.OrderBy) []map[string]interface{} {
	if len(orderBy) == 0 {
		return records
	}

	sorted := make([]map[string]interface{}, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		for _, order := range orderBy {
			cmp := b.compare(sorted[i][order.Field], sorted[j][order.Field])
			if cmp == 0 {
				continue
			}
			if strings.EqualFold(order.Direction, interfaces.Desc) {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	return sorted
}

// ApplyPagination applies limit and offset to the records
func (b *Builder) ApplyPagination(records []map[string]interface{}, limit, offset *int) []map[string]interface{} {
	start := 0
	if offset != nil {
		start = *offset
	}

	if start >= len(records) {
		return []map[string]interface{}{}
	}

	end := len(records)
	if limit != nil {
		end = start + *limit
		if end > len(records) {
			end = len(records)
		}
	}

	return records[start:end]
}

// ValidateData validates data against the schema
func (b *Builder) ValidateData(data map[string]interface{}) error {
	for fieldName, fieldSchema := range b.schema.Fields {
		value, exists := data[fieldName]

		// auto-generated
		if fieldName == "id" || fieldName == "created_at" || fieldName == "updated_at" {
			continue
		}

		if !fieldSchema.Nullable && !exists && fieldSchema.DefaultValue == nil {
			return fmt.Errorf("field '%s' is required", fieldName)
		}

		if !exists {
			continue
		}

		if value == nil && !fieldSchema.Nullable {
			return fmt.Errorf("field '%s' cannot be null", fieldName)
		}

		if value != nil {
			if err := b.validateFieldType(fieldName, value, fieldSchema.Type); err != nil {
				return err
			}
		}
	}

	return nil
}

func (b *Builder) validateFieldType(fieldName string, value interface{}, expectedType string) error {
	switch expectedType {
	case interfaces.TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field '%s' must be a string", fieldName)
		}
	case interfaces.TypeInt:
		if _, ok := value.(int); !ok {
			return fmt.Errorf("field '%s' must be an integer", fieldName)
		}
	case interfaces.TypeInt64:
		if _, ok := value.(int64); !ok {
			return fmt.Errorf("field '%s' must be an int64", fieldName)
		}
	case interfaces.TypeBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field '%s' must be a boolean", fieldName)
		}
	case interfaces.TypeFloat:
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("field '%s' must be a float64", fieldName)
		}
	case interfaces.TypeTime:
		if _, ok := value.(time.Time); !ok {
			return fmt.Errorf("field '%s' must be a time value", fieldName)
		}
	}

	return nil
}
