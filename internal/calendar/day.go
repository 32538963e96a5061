package calendar

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DayLayout is the wire and storage format of a Day.
const DayLayout = "2006-01-02"

// Day is a calendar date without time of day. All arithmetic happens on UTC
// midnight so that day steps never hit a DST transition.
type Day struct {
	t time.Time
}

// Normalize drops the time-of-day component of t. The year, month and day are
// read in t's own location; the caller decides which calendar t belongs to.
func Normalize(t time.Time) Day {
	if t.IsZero() {
		return Day{}
	}
	y, m, d := t.Date()
	return Date(y, m, d)
}

// Date builds a Day from its parts.
func Date(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDay accepts either a plain date (2006-01-02) or an RFC 3339 timestamp.
func ParseDay(raw string) (Day, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Day{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(DayLayout, raw); err == nil {
		return Normalize(t), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return Day{}, fmt.Errorf("parse date %q: expected YYYY-MM-DD", raw)
	}
	return Normalize(t), nil
}

// MustParseDay is ParseDay for literals known to be valid.
func MustParseDay(raw string) Day {
	d, err := ParseDay(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// Today returns the current day in the given location.
func Today(loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	return Normalize(time.Now().In(loc))
}

func (d Day) IsZero() bool { return d.t.IsZero() }

// Time returns the day as UTC midnight.
func (d Day) Time() time.Time { return d.t }

func (d Day) AddDays(n int) Day {
	if d.IsZero() {
		return d
	}
	return Day{t: d.t.AddDate(0, 0, n)}
}

// Weekday numbers days ISO style: 1 is Monday, 7 is Sunday.
func (d Day) Weekday() int {
	wd := int(d.t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// Monday returns the first day of the ISO week containing d.
func (d Day) Monday() Day {
	return d.AddDays(-(d.Weekday() - 1))
}

// Week returns the Monday..Sunday window containing d.
func (d Day) Week() Interval {
	start := d.Monday()
	return Interval{Start: start, End: start.AddDays(6)}
}

// ISOWeek returns the ISO 8601 year and week number of d.
func (d Day) ISOWeek() (year, week int) {
	return d.t.ISOWeek()
}

func (d Day) Before(o Day) bool { return d.t.Before(o.t) }
func (d Day) After(o Day) bool  { return d.t.After(o.t) }
func (d Day) Equal(o Day) bool  { return d.t.Equal(o.t) }

// Compare returns -1, 0 or +1.
func (d Day) Compare(o Day) int {
	switch {
	case d.t.Before(o.t):
		return -1
	case d.t.After(o.t):
		return 1
	}
	return 0
}

// DaysBetween counts whole days from a to b; negative when b is before a.
func DaysBetween(a, b Day) int {
	return int(b.t.Sub(a.t).Hours() / 24)
}

// MinDay returns the earlier of two days.
func MinDay(a, b Day) Day {
	if b.Before(a) {
		return b
	}
	return a
}

// MaxDay returns the later of two days.
func MaxDay(a, b Day) Day {
	if b.After(a) {
		return b
	}
	return a
}

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DayLayout)
}

func (d Day) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Day) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Day{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDay(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the day as YYYY-MM-DD text, which both SQLite and
// PostgreSQL DATE columns accept.
func (d Day) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan reads text, bytes or a time value written by a driver.
func (d *Day) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Day{}
		return nil
	case time.Time:
		// Drivers return DATE columns as midnight in UTC or local time; the
		// calendar date is the stored value either way.
		*d = Normalize(v)
		return nil
	case string:
		parsed, err := ParseDay(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		parsed, err := ParseDay(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	return fmt.Errorf("cannot scan %T into calendar.Day", src)
}
