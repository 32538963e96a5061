package calendar

import (
	"errors"
	"math/rand"
	"testing"
)

func TestSplitWeeksThreeWeekRequest(t *testing.T) {
	segments, err := SplitWeeks(span("2026-02-02", "2026-02-21"))
	if err != nil {
		t.Fatalf("SplitWeeks failed: %v", err)
	}
	want := []string{"2026-02-02..2026-02-08", "2026-02-09..2026-02-15", "2026-02-16..2026-02-21"}
	if len(segments) != len(want) {
		t.Fatalf("want %d segments, got %d: %v", len(want), len(segments), segments)
	}
	for i, s := range segments {
		if s.String() != want[i] {
			t.Errorf("segment %d = %s, want %s", i, s, want[i])
		}
	}
}

func TestSplitWeeksMidweekStart(t *testing.T) {
	segments, err := SplitWeeks(span("2026-01-28", "2026-02-10"))
	if err != nil {
		t.Fatalf("SplitWeeks failed: %v", err)
	}
	want := []string{"2026-01-28..2026-02-01", "2026-02-02..2026-02-08", "2026-02-09..2026-02-10"}
	if len(segments) != len(want) {
		t.Fatalf("want %d segments, got %v", len(want), segments)
	}
	for i, s := range segments {
		if s.String() != want[i] {
			t.Errorf("segment %d = %s, want %s", i, s, want[i])
		}
	}
}

func TestSplitWeeksShortSpanUnchanged(t *testing.T) {
	// Seven days crossing a Sunday stay in one piece.
	iv := span("2026-01-29", "2026-02-04")
	segments, err := SplitWeeks(iv)
	if err != nil {
		t.Fatalf("SplitWeeks failed: %v", err)
	}
	if len(segments) != 1 || segments[0] != iv {
		t.Fatalf("expected %s unchanged, got %v", iv, segments)
	}

	again, err := SplitWeeks(segments[0])
	if err != nil || len(again) != 1 || again[0] != iv {
		t.Fatalf("splitting a single week is not idempotent: %v %v", again, err)
	}
}

func TestSplitWeeksCoversInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	base := day("2025-12-01")
	for i := 0; i < 300; i++ {
		start := base.AddDays(rng.Intn(90))
		iv := Interval{Start: start, End: start.AddDays(rng.Intn(120))}
		segments, err := SplitWeeks(iv)
		if err != nil {
			t.Fatalf("SplitWeeks(%s) failed: %v", iv, err)
		}
		if !segments[0].Start.Equal(iv.Start) || !segments[len(segments)-1].End.Equal(iv.End) {
			t.Fatalf("segments of %s do not reach both ends: %v", iv, segments)
		}
		for j, s := range segments {
			if s.Len() > 7 || s.End.Before(s.Start) {
				t.Fatalf("bad segment %s of %s", s, iv)
			}
			if j > 0 && !segments[j-1].End.AddDays(1).Equal(s.Start) {
				t.Fatalf("gap or overlap between %s and %s", segments[j-1], s)
			}
		}
	}
}

func TestSplitWeeksIterationLimit(t *testing.T) {
	_, err := SplitWeeks(span("2026-01-01", "2027-06-30"))
	if !errors.Is(err, ErrIterationLimit) {
		t.Fatalf("expected ErrIterationLimit, got %v", err)
	}
	if _, err := SplitWeeks(span("2026-01-05", "2027-01-03")); err != nil {
		t.Fatalf("a 52 week interval should split: %v", err)
	}
	if _, err := SplitWeeks(span("2026-02-03", "2026-02-01")); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}
