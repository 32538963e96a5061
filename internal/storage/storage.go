// Package storage holds what the SQLite and PostgreSQL stores share.
package storage

import (
	"errors"

	"resourcecal/internal/calendar"
)

// ErrNotFound is wrapped by every store when a row does not exist.
var ErrNotFound = errors.New("not found")

// AssignmentQuery narrows an assignment listing. Zero fields do not filter.
type AssignmentQuery struct {
	PersonID  int64
	ProjectID int64
	// From and To keep assignments overlapping the closed range.
	From calendar.Day
	To   calendar.Day
}

// DefaultPalette is used when a project is created without a color.
var DefaultPalette = []string{
	"#2563eb",
	"#7c3aed",
	"#dc2626",
	"#059669",
	"#ea580c",
	"#d97706",
	"#0ea5e9",
}

// PaletteColor picks a stable palette entry for a project name.
func PaletteColor(name string) string {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = h*31 + uint32(name[i])
	}
	return DefaultPalette[int(h%uint32(len(DefaultPalette)))]
}
