package models

import (
	"errors"
	"fmt"
	"time"

	"resourcecal/internal/calendar"
)

// ErrInvalid marks a record that fails its own field rules.
var ErrInvalid = errors.New("invalid record")

// Person is someone whose time can be booked on projects. Disabled people
// keep their history but are hidden from pickers.
type Person struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Enabled    bool      `json:"enabled"`
	ExternalID string    `json:"external_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Project groups assignments. Color and Visible only matter for display.
type Project struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	Visible    bool      `json:"visible"`
	Customer   string    `json:"customer,omitempty"`
	ExternalID string    `json:"external_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Assignment books Percentage of a person's day on a project for every day
// between StartDate and EndDate inclusive.
type Assignment struct {
	ID         int64        `json:"id"`
	PersonID   int64        `json:"person_id"`
	ProjectID  int64        `json:"project_id"`
	StartDate  calendar.Day `json:"start_date"`
	EndDate    calendar.Day `json:"end_date"`
	Percentage int          `json:"percentage"`
	// Layer is a manual stacking hint for overlapping bars.
	Layer     *int      `json:"layer,omitempty"`
	BatchID   string    `json:"batch_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Span returns the assignment dates as an interval.
func (a Assignment) Span() calendar.Interval {
	return calendar.Interval{Start: a.StartDate, End: a.EndDate}
}

// Allocation converts the assignment for the capacity calculator.
func (a Assignment) Allocation() calendar.Allocation {
	return calendar.Allocation{Span: a.Span(), Percentage: a.Percentage}
}

// Validate checks references, the date order and the percentage range.
func (a Assignment) Validate() error {
	if a.PersonID <= 0 {
		return fmt.Errorf("%w: person is required", ErrInvalid)
	}
	if a.ProjectID <= 0 {
		return fmt.Errorf("%w: project is required", ErrInvalid)
	}
	if _, err := calendar.NewInterval(a.StartDate, a.EndDate); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if a.Percentage < 0 || a.Percentage > 100 {
		return fmt.Errorf("%w: percentage %d outside 0..100", ErrInvalid, a.Percentage)
	}
	if a.Layer != nil && *a.Layer < 0 {
		return fmt.Errorf("%w: layer must not be negative", ErrInvalid)
	}
	return nil
}

// Allocations maps assignments to capacity allocations.
func Allocations(assignments []Assignment) []calendar.Allocation {
	allocs := make([]calendar.Allocation, len(assignments))
	for i, a := range assignments {
		allocs[i] = a.Allocation()
	}
	return allocs
}

// Filter is a saved selection of people for the grid view.
type Filter struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PersonIDs []int64   `json:"person_ids"`
	CreatedAt time.Time `json:"created_at"`
}
