// Package search filters and sorts materialized person listings. It never
// touches storage; callers resolve views first.
package search

import (
	"slices"
	"strings"

	"github.com/recordsdir/directory-backend/internal/models"
)

// Order is the sort direction
type Order int

const (
	Ascending Order = iota
	Descending
)

// ParseOrder accepts asc/desc in any case; anything else is Ascending
func ParseOrder(s string) Order {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desc", "descending":
		return Descending
	default:
		return Ascending
	}
}

func (o Order) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}

// Filter keeps the records whose field contains text, ignoring case. Records
// with an empty value for the field always pass. Empty text, FieldNone and
// fields without a text form return records unchanged.
func Filter(records []models.PersonView, field Field, text string) []models.PersonView {
	if text == "" {
		return records
	}
	ops, ok := fieldTable[field]
	if !ok || ops.extract == nil {
		return records
	}

	needle := strings.ToLower(text)
	matched := make([]models.PersonView, 0, len(records))
	for _, r := range records {
		value, set := ops.extract(r)
		if !set || strings.Contains(strings.ToLower(value), needle) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Sort returns a stably sorted copy of records. Descending inverts the
// comparison, so equal keys keep their input order in both directions.
func Sort(records []models.PersonView, field Field, order Order) []models.PersonView {
	ops, ok := fieldTable[field]
	if !ok || ops.compare == nil {
		return records
	}

	cmp := ops.compare
	if order == Descending {
		cmp = func(a, b models.PersonView) int { return ops.compare(b, a) }
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, cmp)
	return sorted
}
