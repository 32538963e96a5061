package postgres

import (
	"time"

	"resourcecal/internal/calendar"
	"resourcecal/internal/models"
)

type personRecord struct {
	ID         int64   `gorm:"primaryKey"`
	Name       string  `gorm:"not null"`
	Enabled    bool    `gorm:"not null;default:true"`
	ExternalID *string `gorm:"uniqueIndex"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (personRecord) TableName() string { return "people" }

type projectRecord struct {
	ID         int64   `gorm:"primaryKey"`
	Name       string  `gorm:"not null"`
	Color      string  `gorm:"not null;default:'#2563eb'"`
	Visible    bool    `gorm:"not null;default:true"`
	Customer   string  `gorm:"not null;default:''"`
	ExternalID *string `gorm:"uniqueIndex"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (projectRecord) TableName() string { return "projects" }

type assignmentRecord struct {
	ID         int64         `gorm:"primaryKey"`
	PersonID   int64         `gorm:"not null;index:idx_assignments_person"`
	Person     personRecord  `gorm:"constraint:OnDelete:CASCADE"`
	ProjectID  int64         `gorm:"not null"`
	Project    projectRecord `gorm:"constraint:OnDelete:CASCADE"`
	StartDate  calendar.Day  `gorm:"type:date;not null;index:idx_assignments_person"`
	EndDate    calendar.Day  `gorm:"type:date;not null"`
	Percentage int           `gorm:"not null;check:chk_assignments_percentage,percentage BETWEEN 0 AND 100"`
	Layer      *int
	BatchID    string `gorm:"size:26;not null;default:''"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (assignmentRecord) TableName() string { return "assignments" }

type filterRecord struct {
	ID        string  `gorm:"primaryKey;size:26"`
	Name      string  `gorm:"not null"`
	PersonIDs []int64 `gorm:"serializer:json;not null"`
	CreatedAt time.Time
}

func (filterRecord) TableName() string { return "filters" }

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func (r personRecord) model() models.Person {
	return models.Person{ID: r.ID, Name: r.Name, Enabled: r.Enabled, ExternalID: deref(r.ExternalID), CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func fromPerson(p models.Person) personRecord {
	return personRecord{ID: p.ID, Name: p.Name, Enabled: p.Enabled, ExternalID: optional(p.ExternalID)}
}

func (r projectRecord) model() models.Project {
	return models.Project{
		ID: r.ID, Name: r.Name, Color: r.Color, Visible: r.Visible, Customer: r.Customer,
		ExternalID: deref(r.ExternalID), CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func fromProject(p models.Project) projectRecord {
	return projectRecord{ID: p.ID, Name: p.Name, Color: p.Color, Visible: p.Visible, Customer: p.Customer, ExternalID: optional(p.ExternalID)}
}

func (r assignmentRecord) model() models.Assignment {
	return models.Assignment{
		ID: r.ID, PersonID: r.PersonID, ProjectID: r.ProjectID,
		StartDate: r.StartDate, EndDate: r.EndDate, Percentage: r.Percentage,
		Layer: r.Layer, BatchID: r.BatchID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func fromAssignment(a models.Assignment) assignmentRecord {
	return assignmentRecord{
		ID: a.ID, PersonID: a.PersonID, ProjectID: a.ProjectID,
		StartDate: a.StartDate, EndDate: a.EndDate, Percentage: a.Percentage,
		Layer: a.Layer, BatchID: a.BatchID,
	}
}

func (r filterRecord) model() models.Filter {
	return models.Filter{ID: r.ID, Name: r.Name, PersonIDs: r.PersonIDs, CreatedAt: r.CreatedAt}
}
