package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateFormat is the wire format of a Date
const DateFormat = "2006-01-02"

// Date is a calendar day with no time of day and no zone. It is held as
// midnight UTC of that day.
type Date struct {
	t time.Time
}

// NewDate returns the given calendar day
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf takes the calendar day t falls on in its own location. The instant is
// not converted, so 2000-01-01T00:00:00+02:00 stays 1 January 2000.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate accepts 2006-01-02 and, for older clients, RFC 3339 timestamps
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(DateFormat, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want %s or RFC 3339", s, DateFormat)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the day
func (d Date) Time() time.Time { return d.t }

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Format(layout string) string { return d.t.Format(layout) }

func (d Date) Compare(other Date) int { return d.t.Compare(other.t) }

func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

func (d Date) String() string { return d.t.Format(DateFormat) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON leaves d zero for null and for an empty string, which is what
// a form posts for an untouched date field.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// optionalDate drops a zero date so it is stored as absent
func optionalDate(d *Date) *Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}
