package admission

import (
	"context"
	"errors"
	"testing"
)

func spans(t *testing.T, repo *memRepo) []string {
	t.Helper()
	var out []string
	for _, a := range repo.all() {
		out = append(out, a.Span().String())
	}
	return out
}

func TestRemoveWeekSplitsAroundWeek(t *testing.T) {
	repo := newMemRepo(assignment(1, 2, "2026-01-28", "2026-02-18", 40))
	ctrl := newController(repo)

	rest, err := ctrl.RemoveWeek(context.Background(), 1, day("2026-02-04"))
	if err != nil {
		t.Fatalf("RemoveWeek failed: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("want 2 remaining pieces, got %d", len(rest))
	}
	got := spans(t, repo)
	want := []string{"2026-01-28..2026-02-01", "2026-02-09..2026-02-18"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("stored spans = %v, want %v", got, want)
	}
	for _, a := range repo.all() {
		if a.Percentage != 40 || a.ProjectID != 2 {
			t.Errorf("piece lost attributes: %+v", a)
		}
	}
}

func TestRemoveWeekWholeAssignment(t *testing.T) {
	repo := newMemRepo(assignment(1, 2, "2026-02-03", "2026-02-05", 40))
	ctrl := newController(repo)

	rest, err := ctrl.RemoveWeek(context.Background(), 1, day("2026-02-02"))
	if err != nil {
		t.Fatalf("RemoveWeek failed: %v", err)
	}
	if len(rest) != 0 || len(repo.all()) != 0 {
		t.Fatalf("assignment inside the week should disappear, left %v", spans(t, repo))
	}
}

func TestRemoveWeekOutsideAssignment(t *testing.T) {
	repo := newMemRepo(assignment(1, 2, "2026-02-03", "2026-02-05", 40))
	ctrl := newController(repo)
	if _, err := ctrl.RemoveWeek(context.Background(), 1, day("2026-03-02")); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSetWeekPercentageSplits(t *testing.T) {
	repo := newMemRepo(assignment(1, 2, "2026-01-26", "2026-02-15", 40))
	ctrl := newController(repo)

	pieces, err := ctrl.SetWeekPercentage(context.Background(), 1, day("2026-02-05"), 80)
	if err != nil {
		t.Fatalf("SetWeekPercentage failed: %v", err)
	}
	if len(pieces) != 3 {
		t.Fatalf("want 3 pieces, got %d", len(pieces))
	}
	want := map[string]int{
		"2026-01-26..2026-02-01": 40,
		"2026-02-02..2026-02-08": 80,
		"2026-02-09..2026-02-15": 40,
	}
	for _, a := range repo.all() {
		pct, ok := want[a.Span().String()]
		if !ok || pct != a.Percentage {
			t.Errorf("unexpected piece %s at %d%%", a.Span(), a.Percentage)
		}
	}
}

func TestSetWeekPercentageSingleWeekUpdatesInPlace(t *testing.T) {
	repo := newMemRepo(assignment(1, 2, "2026-02-02", "2026-02-06", 40))
	ctrl := newController(repo)

	pieces, err := ctrl.SetWeekPercentage(context.Background(), 1, day("2026-02-02"), 60)
	if err != nil {
		t.Fatalf("SetWeekPercentage failed: %v", err)
	}
	if len(pieces) != 1 || pieces[0].ID != 1 || pieces[0].Percentage != 60 {
		t.Fatalf("expected in-place update of row 1, got %+v", pieces)
	}
}

func TestSetWeekPercentageRespectsCeiling(t *testing.T) {
	repo := newMemRepo(
		assignment(1, 2, "2026-01-26", "2026-02-15", 40),
		assignment(1, 3, "2026-02-02", "2026-02-08", 100),
	)
	ctrl := newController(repo)

	_, err := ctrl.SetWeekPercentage(context.Background(), 1, day("2026-02-02"), 60)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if n := len(repo.all()); n != 2 {
		t.Fatalf("rejected edit changed the store: %v", spans(t, repo))
	}

	if _, err := ctrl.SetWeekPercentage(context.Background(), 1, day("2026-02-02"), 101); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
