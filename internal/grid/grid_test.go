package grid

import (
	"testing"

	"resourcecal/internal/calendar"
	"resourcecal/internal/models"
)

func day(s string) calendar.Day { return calendar.MustParseDay(s) }

func assignment(id, person, project int64, start, end string, pct int) models.Assignment {
	return models.Assignment{ID: id, PersonID: person, ProjectID: project, StartDate: day(start), EndDate: day(end), Percentage: pct}
}

func TestBuildWeeksAndPeaks(t *testing.T) {
	people := []models.Person{{ID: 1, Name: "Ana"}, {ID: 2, Name: "Bo"}}
	projects := []models.Project{{ID: 10, Name: "Atlas", Color: "#111111"}, {ID: 11, Name: "Borealis", Color: "#222222"}}
	assignments := []models.Assignment{
		assignment(1, 1, 10, "2026-02-02", "2026-02-06", 60),
		assignment(2, 1, 11, "2026-02-05", "2026-02-10", 50),
		assignment(3, 2, 10, "2026-03-30", "2026-04-03", 100),
		assignment(4, 3, 10, "2026-02-02", "2026-02-06", 100),
	}

	g, err := Build(people, assignments, projects, day("2026-02-04"), 2)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if g.From.String() != "2026-02-02" || g.To.String() != "2026-02-15" {
		t.Fatalf("window %s..%s", g.From, g.To)
	}
	if len(g.Weeks) != 2 || g.Weeks[0].Number != 6 || g.Weeks[1].Number != 7 {
		t.Fatalf("unexpected weeks %+v", g.Weeks)
	}
	if len(g.Rows) != 2 {
		t.Fatalf("rows for unlisted people: %d", len(g.Rows))
	}

	ana := g.Rows[0]
	if ana.Cells[0].Peak != 110 || ana.Cells[0].Band != calendar.BandOverloaded {
		t.Errorf("week 6: peak %d band %s", ana.Cells[0].Peak, ana.Cells[0].Band)
	}
	if ana.Cells[1].Peak != 50 || ana.Cells[1].Band != calendar.BandMedium {
		t.Errorf("week 7: peak %d band %s", ana.Cells[1].Peak, ana.Cells[1].Band)
	}
	if len(ana.Cells[0].Assignments) != 2 || len(ana.Cells[1].Assignments) != 1 {
		t.Errorf("cell assignments: %d, %d", len(ana.Cells[0].Assignments), len(ana.Cells[1].Assignments))
	}
	if ana.Layers != 2 || ana.Bars[1].Color != "#222222" {
		t.Errorf("bars not stacked: %+v", ana.Bars)
	}

	bo := g.Rows[1]
	if len(bo.Bars) != 0 || bo.Cells[0].Peak != 0 || bo.Cells[0].Band != calendar.BandLow {
		t.Errorf("out-of-window assignment leaked into row: %+v", bo)
	}
}

func TestBuildRejectsWeekCount(t *testing.T) {
	for _, weeks := range []int{0, -1, MaxWeeks + 1} {
		if _, err := Build(nil, nil, nil, day("2026-02-02"), weeks); err == nil {
			t.Errorf("weeks=%d should fail", weeks)
		}
	}
}

func TestStack(t *testing.T) {
	manual := 0
	tests := []struct {
		name  string
		input []models.Assignment
		want  map[int64]int
	}{
		{
			name: "disjoint share layer zero",
			input: []models.Assignment{
				assignment(1, 1, 1, "2026-02-02", "2026-02-04", 10),
				assignment(2, 1, 2, "2026-02-05", "2026-02-06", 10),
			},
			want: map[int64]int{1: 0, 2: 0},
		},
		{
			name: "overlaps climb",
			input: []models.Assignment{
				assignment(3, 1, 3, "2026-02-04", "2026-02-06", 10),
				assignment(1, 1, 1, "2026-02-02", "2026-02-06", 10),
				assignment(2, 1, 2, "2026-02-03", "2026-02-05", 10),
			},
			want: map[int64]int{1: 0, 2: 1, 3: 2},
		},
		{
			name: "manual layer is kept and avoided",
			input: []models.Assignment{
				assignment(1, 1, 1, "2026-02-02", "2026-02-06", 10),
				func() models.Assignment {
					a := assignment(2, 1, 2, "2026-02-03", "2026-02-04", 10)
					a.Layer = &manual
					return a
				}(),
			},
			want: map[int64]int{1: 1, 2: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Stack(tt.input)
			if len(got) != len(tt.input) {
				t.Fatalf("got %d placements", len(got))
			}
			for _, p := range got {
				if want := tt.want[p.Assignment.ID]; p.Layer != want {
					t.Errorf("assignment %d on layer %d, want %d", p.Assignment.ID, p.Layer, want)
				}
			}
		})
	}
}
