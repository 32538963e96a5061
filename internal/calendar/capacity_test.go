package calendar

import (
	"math/rand"
	"testing"
)

func alloc(start, end string, pct int) Allocation {
	return Allocation{Span: span(start, end), Percentage: pct}
}

func TestPeakCapacityScenarios(t *testing.T) {
	week := day("2026-01-26")
	base := []Allocation{
		alloc("2026-01-27", "2026-01-29", 40),
		alloc("2026-01-27", "2026-01-30", 50),
	}
	if got := PeakCapacity(base, week); got != 90 {
		t.Fatalf("scenario A peak = %d, want 90", got)
	}

	withFriday := append(append([]Allocation{}, base...), alloc("2026-01-30", "2026-01-30", 50))
	if got := PeakCapacity(withFriday, week); got != 100 {
		t.Fatalf("scenario B peak = %d, want 100", got)
	}

	loads := DailyLoad(withFriday, week.Week())
	want := []int{0, 90, 90, 90, 100, 0, 0}
	for i, l := range loads {
		if l.Load != want[i] {
			t.Errorf("load on %s = %d, want %d", l.Day, l.Load, want[i])
		}
	}
}

func TestPeakCapacityIgnoresSequentialAssignments(t *testing.T) {
	week := day("2026-02-02")
	allocs := []Allocation{
		alloc("2026-02-02", "2026-02-04", 80),
		alloc("2026-02-05", "2026-02-08", 80),
		alloc("2026-01-01", "2026-02-01", 100),
	}
	if got := PeakCapacity(allocs, week); got != 80 {
		t.Fatalf("peak = %d, want 80", got)
	}
}

func TestPeakCapacityOrderInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	week := day("2026-01-26")
	var allocs []Allocation
	for i := 0; i < 12; i++ {
		s := day("2026-01-20").AddDays(rng.Intn(14))
		allocs = append(allocs, Allocation{Span: Interval{Start: s, End: s.AddDays(rng.Intn(6))}, Percentage: rng.Intn(60)})
	}
	want := PeakCapacity(allocs, week)
	for i := 0; i < 20; i++ {
		rng.Shuffle(len(allocs), func(a, b int) { allocs[a], allocs[b] = allocs[b], allocs[a] })
		if got := PeakCapacity(allocs, week); got != want {
			t.Fatalf("peak changed with order: %d vs %d", got, want)
		}
	}
}

func TestValidateCapacity(t *testing.T) {
	week := day("2026-01-26")
	allocs := []Allocation{alloc("2026-01-26", "2026-02-01", 120)}
	if ValidateCapacity(allocs, 40, week, DefaultCeiling) {
		t.Fatalf("120%% + 40%% should exceed %d", DefaultCeiling)
	}
	if !ValidateCapacity(allocs, 30, week, DefaultCeiling) {
		t.Fatalf("120%% + 30%% should fit exactly")
	}

	// The flat check is blind to the day of the candidate; the strict one is not.
	monday := alloc("2026-01-26", "2026-01-26", 120)
	friday := alloc("2026-01-30", "2026-01-30", 40)
	if ValidateCapacity([]Allocation{monday}, friday.Percentage, week, DefaultCeiling) {
		t.Fatalf("flat check should reject")
	}
	if got := PeakWithCandidate([]Allocation{monday}, friday, week); got != 120 {
		t.Fatalf("PeakWithCandidate = %d, want 120", got)
	}
}

func TestBand(t *testing.T) {
	tests := map[int]string{0: BandLow, 49: BandLow, 50: BandMedium, 74: BandMedium, 75: BandHigh, 100: BandHigh, 101: BandOverloaded}
	for peak, want := range tests {
		if got := Band(peak); got != want {
			t.Errorf("Band(%d) = %s, want %s", peak, got, want)
		}
	}
}
