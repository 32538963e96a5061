package calendar

import (
	"errors"
	"fmt"
)

// MaxWeekStrides bounds the number of weeks a single interval may be split
// into.
const MaxWeekStrides = 53

// ErrIterationLimit is returned when an interval spans more weeks than
// MaxWeekStrides. The interval is rejected, never truncated.
var ErrIterationLimit = errors.New("interval spans too many weeks")

// SplitWeeks cuts an interval at ISO week boundaries.
//
// Intervals of at most seven days come back unchanged, even when they cross a
// Sunday. Longer intervals are walked in Monday aligned strides: the first
// piece starts at iv.Start, the last one ends at iv.End and every piece in
// between is a full Monday..Sunday week.
func SplitWeeks(iv Interval) ([]Interval, error) {
	if _, err := NewInterval(iv.Start, iv.End); err != nil {
		return nil, err
	}
	if iv.Len() <= 7 {
		return []Interval{iv}, nil
	}

	var segments []Interval
	strides := 0
	for weekStart := iv.Start.Monday(); !weekStart.After(iv.End); weekStart = weekStart.AddDays(7) {
		strides++
		if strides > MaxWeekStrides {
			return nil, fmt.Errorf("%w: %s exceeds %d weeks", ErrIterationLimit, iv, MaxWeekStrides)
		}
		segments = append(segments, Interval{
			Start: MaxDay(weekStart, iv.Start),
			End:   MinDay(weekStart.AddDays(6), iv.End),
		})
	}
	return segments, nil
}
