package recon

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day (time-of-day is not significant for matching)
// =============================================================================

type Date struct {
	t time.Time // always midnight UTC
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts the date formats that appear in the source tables:
// plain dates, SQL datetime, and RFC3339 timestamps. Slash dates are
// rejected: DD/MM vs MM/DD cannot be told apart, and a guessed month can
// move a record across a matching window. Such rows fail normalization
// and get skipped instead.
func ParseDate(s string) (Date, error) {
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("unrecognized date %q", s)
}

// Comparison
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }
func (d Date) IsZero() bool           { return d.t.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysApart returns the absolute number of calendar days between two dates.
func DaysApart(a, b Date) int {
	days := int(b.t.Sub(a.t).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

// WithinWindow reports whether two dates are at most window days apart.
func WithinWindow(a, b Date, window int) bool {
	return DaysApart(a, b) <= window
}

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) Time() time.Time   { return d.t }

func (d Date) String() string { return d.t.Format("2006-01-02") }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
