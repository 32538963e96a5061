// Package export writes planner grids as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"resourcecal/internal/grid"
	"resourcecal/internal/models"
)

const (
	CapacitySheet    = "Capacity"
	AssignmentsSheet = "Assignments"
)

// ContentType is the MIME type of the workbook written by WriteGrid.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteGrid writes g as a workbook with a weekly peak sheet and an
// assignment list.
func WriteGrid(w io.Writer, g grid.Grid, projects []models.Project) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", CapacitySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeCapacity(f, g); err != nil {
		return err
	}

	if _, err := f.NewSheet(AssignmentsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := writeAssignments(f, g, projects); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func writeCapacity(f *excelize.File, g grid.Grid) error {
	header := []any{"Person"}
	for _, w := range g.Weeks {
		header = append(header, fmt.Sprintf("W%02d %s", w.Number, w.Start))
	}
	if err := setRow(f, CapacitySheet, 1, header...); err != nil {
		return err
	}

	for i, r := range g.Rows {
		values := []any{r.Person.Name}
		for _, c := range r.Cells {
			values = append(values, c.Peak)
		}
		if err := setRow(f, CapacitySheet, i+2, values...); err != nil {
			return err
		}
	}
	return f.SetColWidth(CapacitySheet, "A", "A", 24)
}

func writeAssignments(f *excelize.File, g grid.Grid, projects []models.Project) error {
	byID := make(map[int64]models.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}

	if err := setRow(f, AssignmentsSheet, 1, "Person", "Project", "Customer", "Start", "End", "Percentage", "Batch"); err != nil {
		return err
	}
	row := 2
	for _, r := range g.Rows {
		for _, b := range r.Bars {
			p := byID[b.Assignment.ProjectID]
			name := p.Name
			if name == "" {
				name = b.Project
			}
			err := setRow(f, AssignmentsSheet, row,
				r.Person.Name, name, p.Customer,
				b.Assignment.StartDate.String(), b.Assignment.EndDate.String(),
				b.Assignment.Percentage, b.Assignment.BatchID)
			if err != nil {
				return err
			}
			row++
		}
	}
	return f.SetColWidth(AssignmentsSheet, "A", "C", 24)
}
