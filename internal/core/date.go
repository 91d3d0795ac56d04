package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DateFormat is the ISO calendar day layout used on every boundary.
const DateFormat = "2006-01-02"

var ErrZeroDate = errors.New("date cannot be zero")

// Date is a calendar day. The time part is always midnight UTC.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar day in the timestamp's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustParseDate is like ParseDate but panics on error.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Validate rejects the zero date. Day and month ranges are enforced by ParseDate.
func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (d Date) String() string { return d.Format(DateFormat) }

// Before reports whether d is an earlier calendar day than x.
func (d Date) Before(x Date) bool { return d.key() < x.key() }

// After reports whether d is a later calendar day than x.
func (d Date) After(x Date) bool { return d.key() > x.key() }

// Equal reports whether both dates are the same calendar day.
func (d Date) Equal(x Date) bool { return d.key() == x.key() }

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	y, m, day := d.Date()
	return NewDate(y, int(m), day+n)
}

// DaysUntil returns the number of calendar days from d to x (negative when x is earlier).
func (d Date) DaysUntil(x Date) int {
	a := NewDate(d.Year(), int(d.Month()), d.Day())
	b := NewDate(x.Year(), int(x.Month()), x.Day())
	return int(b.Sub(a.Time).Hours() / 24)
}

func (d Date) key() int {
	y, m, day := d.Date()
	return y*10000 + int(m)*100 + day
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
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

var (
	_ json.Marshaler   = Date{}
	_ json.Unmarshaler = (*Date)(nil)
)
