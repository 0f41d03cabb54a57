package documents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the canonical wire and storage layout for posting dates.
const DateLayout = "2006-01-02"

// Date is a nullable calendar date.
type Date struct {
	t     time.Time
	valid bool
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), valid: true}
}

// Valid reports whether the date is set.
func (d Date) Valid() bool { return d.valid }

// Time returns the underlying time, zero when unset.
func (d Date) Time() time.Time { return d.t }

// String formats the date, or returns an empty string when unset.
func (d Date) String() string {
	if !d.valid {
		return ""
	}
	return d.t.Format(DateLayout)
}

// Value returns the date for a database driver, nil when unset.
func (d Date) Value() any {
	if !d.valid {
		return nil
	}
	return d.t
}

// MarshalJSON encodes the date as YYYY-MM-DD or null.
func (d Date) MarshalJSON() ([]byte, error) {
	if !d.valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts YYYY-MM-DD strings and null.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("documents: date: %w", err)
	}
	if raw == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return fmt.Errorf("documents: date %q: %w", raw, err)
	}
	*d = NewDate(t)
	return nil
}
