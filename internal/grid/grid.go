// Package grid lays out people, weeks and assignments for the planner view.
package grid

import (
	"fmt"
	"sort"

	"resourcecal/internal/calendar"
	"resourcecal/internal/models"
)

// MaxWeeks bounds the number of columns a grid may have.
const MaxWeeks = 53

// Week is one column of the grid.
type Week struct {
	Year   int          `json:"year"`
	Number int          `json:"number"`
	Start  calendar.Day `json:"start"`
	End    calendar.Day `json:"end"`
}

// Cell is the load of one person in one week.
type Cell struct {
	Week        calendar.Day        `json:"week"`
	Peak        int                 `json:"peak"`
	Band        string              `json:"band"`
	Assignments []models.Assignment `json:"assignments"`
}

// Bar is an assignment placed on a row, with its display attributes.
type Bar struct {
	Assignment models.Assignment `json:"assignment"`
	Project    string            `json:"project"`
	Color      string            `json:"color"`
	Layer      int               `json:"layer"`
}

// Row holds one person's cells and bars.
type Row struct {
	Person models.Person `json:"person"`
	Cells  []Cell        `json:"cells"`
	Bars   []Bar         `json:"bars"`
	Layers int           `json:"layers"`
}

type Grid struct {
	From  calendar.Day `json:"from"`
	To    calendar.Day `json:"to"`
	Weeks []Week       `json:"weeks"`
	Rows  []Row        `json:"rows"`
}

// Window returns the days covered by a grid starting in the week of from.
func Window(from calendar.Day, weeks int) (calendar.Interval, error) {
	if weeks < 1 || weeks > MaxWeeks {
		return calendar.Interval{}, fmt.Errorf("weeks must be between 1 and %d, got %d", MaxWeeks, weeks)
	}
	start := from.Monday()
	return calendar.Interval{Start: start, End: start.AddDays(7*weeks - 1)}, nil
}

// Build renders the grid for people in the order given. Assignments of
// people not listed and assignments outside the window are ignored.
func Build(people []models.Person, assignments []models.Assignment, projects []models.Project, from calendar.Day, weeks int) (Grid, error) {
	window, err := Window(from, weeks)
	if err != nil {
		return Grid{}, err
	}

	g := Grid{From: window.Start, To: window.End}
	for _, monday := range window.Weeks() {
		year, number := monday.ISOWeek()
		g.Weeks = append(g.Weeks, Week{Year: year, Number: number, Start: monday, End: monday.AddDays(6)})
	}

	byID := make(map[int64]models.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}

	byPerson := make(map[int64][]models.Assignment)
	for _, a := range assignments {
		if calendar.Overlaps(a.Span(), window) {
			byPerson[a.PersonID] = append(byPerson[a.PersonID], a)
		}
	}

	g.Rows = make([]Row, 0, len(people))
	for _, person := range people {
		g.Rows = append(g.Rows, buildRow(person, byPerson[person.ID], g.Weeks, byID))
	}
	return g, nil
}

func buildRow(person models.Person, assignments []models.Assignment, weeks []Week, projects map[int64]models.Project) Row {
	row := Row{Person: person, Cells: make([]Cell, 0, len(weeks))}
	allocs := models.Allocations(assignments)

	for _, w := range weeks {
		span := calendar.Interval{Start: w.Start, End: w.End}
		cell := Cell{Week: w.Start, Assignments: []models.Assignment{}}
		for _, a := range assignments {
			if calendar.Overlaps(a.Span(), span) {
				cell.Assignments = append(cell.Assignments, a)
			}
		}
		cell.Peak = calendar.PeakCapacity(allocs, w.Start)
		cell.Band = calendar.Band(cell.Peak)
		row.Cells = append(row.Cells, cell)
	}

	for _, placed := range Stack(assignments) {
		project := projects[placed.Assignment.ProjectID]
		row.Bars = append(row.Bars, Bar{
			Assignment: placed.Assignment,
			Project:    project.Name,
			Color:      project.Color,
			Layer:      placed.Layer,
		})
		if placed.Layer+1 > row.Layers {
			row.Layers = placed.Layer + 1
		}
	}
	return row
}

// Placement is an assignment with the layer it is drawn on.
type Placement struct {
	Assignment models.Assignment
	Layer      int
}

// Stack assigns every assignment a layer so that overlapping assignments
// on the same layer only happen when a manual Layer forces it. Manual
// layers are kept; the rest take the lowest free layer in start order.
func Stack(assignments []models.Assignment) []Placement {
	sorted := make([]models.Assignment, len(assignments))
	copy(sorted, assignments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].StartDate.Compare(sorted[j].StartDate); c != 0 {
			return c < 0
		}
		return sorted[i].ID < sorted[j].ID
	})

	var occupied [][]calendar.Interval
	take := func(layer int, span calendar.Interval) {
		for len(occupied) <= layer {
			occupied = append(occupied, nil)
		}
		occupied[layer] = append(occupied[layer], span)
	}
	free := func(layer int, span calendar.Interval) bool {
		if layer >= len(occupied) {
			return true
		}
		for _, other := range occupied[layer] {
			if calendar.Overlaps(other, span) {
				return false
			}
		}
		return true
	}

	out := make([]Placement, len(sorted))
	for i, a := range sorted {
		if a.Layer != nil {
			out[i] = Placement{Assignment: a, Layer: *a.Layer}
			take(*a.Layer, a.Span())
		}
	}
	for i, a := range sorted {
		if a.Layer != nil {
			continue
		}
		layer := 0
		for !free(layer, a.Span()) {
			layer++
		}
		out[i] = Placement{Assignment: a, Layer: layer}
		take(layer, a.Span())
	}
	return out
}
