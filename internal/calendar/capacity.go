package calendar

// DefaultCeiling is the peak daily load, in percent, above which new work is
// refused.
const DefaultCeiling = 150

// Allocation is the share of a person's time booked over a span of days.
type Allocation struct {
	Span       Interval
	Percentage int
}

// DayLoad is the summed allocation of a single day.
type DayLoad struct {
	Day  Day `json:"day"`
	Load int `json:"load"`
}

// DailyLoad sums, for every day of window, the allocations active on that
// day.
func DailyLoad(allocs []Allocation, window Interval) []DayLoad {
	active := make([]Allocation, 0, len(allocs))
	for _, a := range allocs {
		if Overlaps(a.Span, window) {
			active = append(active, a)
		}
	}

	days := window.Days()
	loads := make([]DayLoad, len(days))
	for i, d := range days {
		loads[i].Day = d
		for _, a := range active {
			if a.Span.Contains(d) {
				loads[i].Load += a.Percentage
			}
		}
	}
	return loads
}

// PeakCapacity returns the highest single-day load in the seven days starting
// at weekStart. Allocations that touch the week on different days are never
// added together.
func PeakCapacity(allocs []Allocation, weekStart Day) int {
	window := Interval{Start: weekStart, End: weekStart.AddDays(6)}
	return peak(DailyLoad(allocs, window))
}

// PeakWithCandidate is PeakCapacity computed as if candidate were already
// booked.
func PeakWithCandidate(allocs []Allocation, candidate Allocation, weekStart Day) int {
	withCandidate := make([]Allocation, 0, len(allocs)+1)
	withCandidate = append(withCandidate, allocs...)
	withCandidate = append(withCandidate, candidate)
	return PeakCapacity(withCandidate, weekStart)
}

// ValidateCapacity is the flat pre-check: the current peak plus additional
// must stay within ceiling.
func ValidateCapacity(allocs []Allocation, additional int, weekStart Day, ceiling int) bool {
	return PeakCapacity(allocs, weekStart)+additional <= ceiling
}

func peak(loads []DayLoad) int {
	highest := 0
	for _, l := range loads {
		if l.Load > highest {
			highest = l.Load
		}
	}
	return highest
}

// Capacity bands used to colour grid cells.
const (
	BandLow        = "low"
	BandMedium     = "medium"
	BandHigh       = "high"
	BandOverloaded = "overloaded"
)

// Band classifies a peak load for display.
func Band(peak int) string {
	switch {
	case peak > 100:
		return BandOverloaded
	case peak < 50:
		return BandLow
	case peak < 75:
		return BandMedium
	default:
		return BandHigh
	}
}
