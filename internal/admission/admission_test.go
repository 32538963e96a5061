package admission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"resourcecal/internal/calendar"
	"resourcecal/internal/models"
)

var errNotFound = errors.New("not found")

// memRepo keeps assignments in memory. A transaction works on a copy that is
// published only when fn succeeds.
type memRepo struct {
	mu         sync.Mutex
	rows       map[int64]models.Assignment
	nextID     int64
	failInsert int // fail the n-th insert of a transaction when > 0
}

func newMemRepo(rows ...models.Assignment) *memRepo {
	r := &memRepo{rows: map[int64]models.Assignment{}}
	for _, a := range rows {
		r.nextID++
		a.ID = r.nextID
		r.rows[a.ID] = a
	}
	return r
}

func (r *memRepo) GetAssignment(_ context.Context, id int64) (models.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return models.Assignment{}, errNotFound
	}
	return a, nil
}

func (r *memRepo) InPersonTx(_ context.Context, _ int64, fn func(Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &memTx{repo: r, rows: map[int64]models.Assignment{}, nextID: r.nextID}
	for id, a := range r.rows {
		tx.rows[id] = a
	}
	if err := fn(tx); err != nil {
		return err
	}
	r.rows = tx.rows
	r.nextID = tx.nextID
	return nil
}

func (r *memRepo) all() []models.Assignment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Assignment, 0, len(r.rows))
	for _, a := range r.rows {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

type memTx struct {
	repo    *memRepo
	rows    map[int64]models.Assignment
	nextID  int64
	inserts int
}

func (t *memTx) AssignmentsByPerson(_ context.Context, personID int64) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, a := range t.rows {
		if a.PersonID == personID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *memTx) GetAssignment(_ context.Context, id int64) (models.Assignment, error) {
	a, ok := t.rows[id]
	if !ok {
		return models.Assignment{}, errNotFound
	}
	return a, nil
}

func (t *memTx) InsertAssignment(_ context.Context, a models.Assignment) (models.Assignment, error) {
	t.inserts++
	if t.repo.failInsert > 0 && t.inserts == t.repo.failInsert {
		return models.Assignment{}, fmt.Errorf("disk full")
	}
	t.nextID++
	a.ID = t.nextID
	t.rows[a.ID] = a
	return a, nil
}

func (t *memTx) UpdateAssignment(_ context.Context, a models.Assignment) (models.Assignment, error) {
	if _, ok := t.rows[a.ID]; !ok {
		return models.Assignment{}, errNotFound
	}
	t.rows[a.ID] = a
	return a, nil
}

func (t *memTx) DeleteAssignment(_ context.Context, id int64) error {
	if _, ok := t.rows[id]; !ok {
		return errNotFound
	}
	delete(t.rows, id)
	return nil
}

func day(s string) calendar.Day { return calendar.MustParseDay(s) }

func assignment(person, project int64, start, end string, pct int) models.Assignment {
	return models.Assignment{PersonID: person, ProjectID: project, StartDate: day(start), EndDate: day(end), Percentage: pct}
}

func newController(repo Repository) *Controller {
	return New(repo, Config{Ceiling: 150}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAdmitSplitsIntoWeeks(t *testing.T) {
	repo := newMemRepo()
	ctrl := newController(repo)

	res, err := ctrl.Admit(context.Background(), assignment(1, 2, "2026-02-02", "2026-02-21", 50))
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	want := []string{"2026-02-02..2026-02-08", "2026-02-09..2026-02-15", "2026-02-16..2026-02-21"}
	if len(res.Assignments) != len(want) {
		t.Fatalf("want %d segments, got %d", len(want), len(res.Assignments))
	}
	for i, a := range res.Assignments {
		if a.Span().String() != want[i] {
			t.Errorf("segment %d = %s, want %s", i, a.Span(), want[i])
		}
		if a.ID == 0 || a.BatchID != res.BatchID || a.Percentage != 50 || a.ProjectID != 2 {
			t.Errorf("segment %d lost attributes: %+v", i, a)
		}
	}
	if len(repo.all()) != 3 {
		t.Fatalf("expected 3 stored rows, got %d", len(repo.all()))
	}
}

func TestAdmitRejectsDuplicateProject(t *testing.T) {
	repo := newMemRepo(assignment(1, 2, "2026-02-11", "2026-02-11", 20))
	ctrl := newController(repo)

	_, err := ctrl.Admit(context.Background(), assignment(1, 2, "2026-02-02", "2026-02-21", 50))
	if !errors.Is(err, ErrDuplicateProjectInWeek) {
		t.Fatalf("expected ErrDuplicateProjectInWeek, got %v", err)
	}
	var rej *Rejection
	if !errors.As(err, &rej) || rej.ConflictID != 1 {
		t.Fatalf("expected rejection pointing at assignment 1, got %+v", rej)
	}
	if n := len(repo.all()); n != 1 {
		t.Fatalf("no segment may be persisted, store has %d rows", n)
	}

	// Another project in the same days is fine.
	if _, err := ctrl.Admit(context.Background(), assignment(1, 3, "2026-02-02", "2026-02-21", 50)); err != nil {
		t.Fatalf("different project should be admitted: %v", err)
	}
}

func TestAdmitRejectsCapacity(t *testing.T) {
	repo := newMemRepo(
		assignment(1, 7, "2026-01-26", "2026-02-01", 70),
		assignment(1, 8, "2026-01-26", "2026-02-01", 50),
	)
	ctrl := newController(repo)

	_, err := ctrl.Admit(context.Background(), assignment(1, 9, "2026-01-26", "2026-02-01", 40))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	var rej *Rejection
	if !errors.As(err, &rej) || rej.Peak != 160 || rej.Ceiling != 150 || rej.Week.String() != "2026-01-26" {
		t.Fatalf("unexpected rejection details: %+v", rej)
	}
	if !IsRejection(err) {
		t.Fatalf("capacity failure must be a rejection")
	}
	if n := len(repo.all()); n != 2 {
		t.Fatalf("store changed: %d rows", n)
	}

	if _, err := ctrl.Admit(context.Background(), assignment(1, 9, "2026-01-26", "2026-02-01", 30)); err != nil {
		t.Fatalf("30%% on top of 120%% fits the ceiling: %v", err)
	}
}

func TestAdmitChecksDailyPeakNotWeekSum(t *testing.T) {
	// 120% early in the week, new 40% late in the week never coincide.
	repo := newMemRepo(assignment(1, 7, "2026-01-26", "2026-01-27", 120))
	ctrl := newController(repo)
	if _, err := ctrl.Admit(context.Background(), assignment(1, 8, "2026-01-29", "2026-01-30", 40)); err != nil {
		t.Fatalf("sequential work should be admitted: %v", err)
	}

	flat := New(newMemRepo(assignment(1, 7, "2026-01-26", "2026-01-27", 120)), Config{Ceiling: 150, FlatCheck: true}, nil)
	if _, err := flat.Admit(context.Background(), assignment(1, 8, "2026-01-29", "2026-01-30", 40)); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("flat check should reject, got %v", err)
	}
}

func TestAdmitRejectsOnLaterSegment(t *testing.T) {
	repo := newMemRepo(assignment(1, 7, "2026-02-16", "2026-02-16", 120))
	ctrl := newController(repo)

	_, err := ctrl.Admit(context.Background(), assignment(1, 8, "2026-02-02", "2026-02-21", 50))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if n := len(repo.all()); n != 1 {
		t.Fatalf("first segments must not be committed, store has %d rows", n)
	}
}

func TestAdmitValidation(t *testing.T) {
	ctrl := newController(newMemRepo())
	tests := []struct {
		name string
		req  models.Assignment
		want error
	}{
		{"inverted", assignment(1, 2, "2026-02-10", "2026-02-02", 50), ErrValidation},
		{"percentage", assignment(1, 2, "2026-02-02", "2026-02-03", 101), ErrValidation},
		{"negative", assignment(1, 2, "2026-02-02", "2026-02-03", -1), ErrValidation},
		{"no person", assignment(0, 2, "2026-02-02", "2026-02-03", 10), ErrValidation},
		{"too long", assignment(1, 2, "2026-01-01", "2027-12-31", 10), calendar.ErrIterationLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ctrl.Admit(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !IsRejection(err) {
				t.Fatalf("expected a rejection, got %T", err)
			}
		})
	}
}

func TestAdmitStorageFailureCommitsNothing(t *testing.T) {
	repo := newMemRepo()
	repo.failInsert = 2
	ctrl := newController(repo)

	_, err := ctrl.Admit(context.Background(), assignment(1, 2, "2026-02-02", "2026-02-21", 50))
	if err == nil || IsRejection(err) {
		t.Fatalf("expected a storage error, got %v", err)
	}
	if n := len(repo.all()); n != 0 {
		t.Fatalf("partial batch committed: %d rows", n)
	}
}

func TestUpdateRechecksCapacity(t *testing.T) {
	repo := newMemRepo(
		assignment(1, 7, "2026-01-26", "2026-02-01", 100),
		assignment(1, 8, "2026-01-26", "2026-02-01", 40),
	)
	ctrl := newController(repo)

	pct := 60
	_, err := ctrl.Update(context.Background(), 2, Patch{Percentage: &pct})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if a, _ := repo.GetAssignment(context.Background(), 2); a.Percentage != 40 {
		t.Fatalf("rejected update leaked: %+v", a)
	}

	pct = 50
	updated, err := ctrl.Update(context.Background(), 2, Patch{Percentage: &pct})
	if err != nil {
		t.Fatalf("update to exactly the ceiling failed: %v", err)
	}
	if updated.Percentage != 50 {
		t.Fatalf("update not applied: %+v", updated)
	}
}

func TestUpdateMoveAndValidate(t *testing.T) {
	repo := newMemRepo(
		assignment(1, 7, "2026-01-26", "2026-01-28", 100),
		assignment(1, 8, "2026-01-29", "2026-01-30", 100),
	)
	ctrl := newController(repo)

	start, end := day("2026-01-28"), day("2026-01-29")
	if _, err := ctrl.Update(context.Background(), 2, Patch{StartDate: &start, EndDate: &end}); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("moving onto a 100%% day should exceed 150%%, got %v", err)
	}

	inverted := day("2026-01-20")
	if _, err := ctrl.Update(context.Background(), 2, Patch{EndDate: &inverted}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	if _, err := ctrl.Update(context.Background(), 99, Patch{}); !errors.Is(err, errNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateKeepsAlreadyOverloadedWeek(t *testing.T) {
	repo := newMemRepo(
		assignment(1, 7, "2026-01-26", "2026-02-01", 100),
		assignment(1, 8, "2026-01-26", "2026-02-01", 80),
	)
	ctrl := newController(repo)

	pct := 70
	if _, err := ctrl.Update(context.Background(), 2, Patch{Percentage: &pct}); err != nil {
		t.Fatalf("lowering an overloaded week must be allowed: %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo := newMemRepo(assignment(1, 7, "2026-01-26", "2026-02-01", 100))
	ctrl := newController(repo)
	if err := ctrl.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(repo.all()) != 0 {
		t.Fatalf("row still present")
	}
}
