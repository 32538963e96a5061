package calendar

import (
	"errors"
	"fmt"
)

// ErrInvalidInterval reports a missing bound or a start after the end.
var ErrInvalidInterval = errors.New("invalid interval")

// Interval is a closed range of days: both Start and End belong to it.
type Interval struct {
	Start Day `json:"start"`
	End   Day `json:"end"`
}

// NewInterval validates the bounds of a closed interval.
func NewInterval(start, end Day) (Interval, error) {
	if start.IsZero() || end.IsZero() {
		return Interval{}, fmt.Errorf("%w: start and end dates are required", ErrInvalidInterval)
	}
	if start.After(end) {
		return Interval{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidInterval, start, end)
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether a and b share at least one day.
func Overlaps(a, b Interval) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}

// Overlaps is the method form of the package level predicate.
func (iv Interval) Overlaps(other Interval) bool {
	return Overlaps(iv, other)
}

// Contains reports whether d lies inside the interval.
func (iv Interval) Contains(d Day) bool {
	return !d.Before(iv.Start) && !d.After(iv.End)
}

// Len is the number of days in the interval, counting both ends.
func (iv Interval) Len() int {
	return DaysBetween(iv.Start, iv.End) + 1
}

// Days lists every day of the interval in order.
func (iv Interval) Days() []Day {
	if iv.End.Before(iv.Start) {
		return nil
	}
	days := make([]Day, 0, iv.Len())
	for d := iv.Start; !d.After(iv.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Clip intersects the interval with window. ok is false when they are
// disjoint.
func (iv Interval) Clip(window Interval) (clipped Interval, ok bool) {
	if !Overlaps(iv, window) {
		return Interval{}, false
	}
	return Interval{Start: MaxDay(iv.Start, window.Start), End: MinDay(iv.End, window.End)}, true
}

// Weeks returns the Monday of every ISO week the interval touches.
func (iv Interval) Weeks() []Day {
	var mondays []Day
	for m := iv.Start.Monday(); !m.After(iv.End); m = m.AddDays(7) {
		mondays = append(mondays, m)
	}
	return mondays
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s..%s", iv.Start, iv.End)
}
