package timetracker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"resourcecal/internal/models"
)

type fakeSource struct {
	users    []User
	projects []Project
	err      error
}

func (f fakeSource) Users(context.Context) ([]User, error)       { return f.users, f.err }
func (f fakeSource) Projects(context.Context) ([]Project, error) { return f.projects, f.err }

type fakeSink struct {
	people   map[string]models.Person
	projects map[string]models.Project
	kept     []string
}

func newFakeSink() *fakeSink {
	return &fakeSink{people: map[string]models.Person{}, projects: map[string]models.Project{}}
}

func (f *fakeSink) UpsertPerson(_ context.Context, p models.Person) (models.Person, error) {
	f.people[p.ExternalID] = p
	return p, nil
}

func (f *fakeSink) UpsertProject(_ context.Context, p models.Project) (models.Project, error) {
	f.projects[p.ExternalID] = p
	return p, nil
}

func (f *fakeSink) HideProjectsExcept(_ context.Context, keep []string) (int, error) {
	f.kept = keep
	keepSet := map[string]bool{}
	for _, k := range keep {
		keepSet[k] = true
	}
	hidden := 0
	for id, p := range f.projects {
		if !keepSet[id] && p.Visible {
			p.Visible = false
			f.projects[id] = p
			hidden++
		}
	}
	return hidden, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSyncerRun(t *testing.T) {
	sink := newFakeSink()
	sink.projects["99"] = models.Project{Name: "Retired", Visible: true, ExternalID: "99"}

	source := fakeSource{
		users: []User{
			{ID: "1", Name: "Ana", Enabled: true},
			{ID: "2", Name: "Bo", Enabled: false},
		},
		projects: []Project{
			{ID: "10", Name: "Atlas", Color: "#123456", Visible: true, Customer: "ACME"},
			{ID: "11", Name: "Borealis", Visible: false},
		},
	}

	report, err := NewSyncer(source, sink, quietLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.People != 2 || report.EnabledPeople != 1 || report.Projects != 2 || report.HiddenProjects != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if sink.people["2"].Enabled {
		t.Errorf("disabled user synced as enabled")
	}
	if got := sink.projects["11"].Color; got != DefaultColor {
		t.Errorf("missing color should default, got %q", got)
	}
	if sink.projects["10"].Customer != "ACME" {
		t.Errorf("customer lost: %+v", sink.projects["10"])
	}
	if sink.projects["99"].Visible {
		t.Errorf("project gone from source still visible")
	}
	if len(sink.kept) != 2 {
		t.Errorf("kept ids = %v", sink.kept)
	}
}

func TestSyncerSourceFailureWritesNothing(t *testing.T) {
	sink := newFakeSink()
	boom := errors.New("connection refused")
	_, err := NewSyncer(fakeSource{err: boom}, sink, quietLogger()).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
	if len(sink.people) != 0 || sink.kept != nil {
		t.Fatalf("sink written after source failure")
	}
}
