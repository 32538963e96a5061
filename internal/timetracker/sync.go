package timetracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"resourcecal/internal/models"
)

// DefaultColor is used for projects the time tracker has no color for.
const DefaultColor = "#000000"

// Sink receives the mirrored records.
type Sink interface {
	UpsertPerson(ctx context.Context, p models.Person) (models.Person, error)
	UpsertProject(ctx context.Context, p models.Project) (models.Project, error)
	HideProjectsExcept(ctx context.Context, keep []string) (int, error)
}

// Report summarizes one sync run.
type Report struct {
	People         int           `json:"people"`
	EnabledPeople  int           `json:"enabled_people"`
	Projects       int           `json:"projects"`
	HiddenProjects int           `json:"hidden_projects"`
	Duration       time.Duration `json:"duration_ns"`
}

type Syncer struct {
	source Source
	sink   Sink
	logger *slog.Logger
}

func NewSyncer(source Source, sink Sink, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{source: source, sink: sink, logger: logger}
}

// Run mirrors users and projects into the sink. Records are upserted by
// their time tracker id; synced projects missing from the source are
// hidden rather than deleted so their assignments survive.
func (s *Syncer) Run(ctx context.Context) (Report, error) {
	started := time.Now()
	var report Report

	users, err := s.source.Users(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch users: %w", err)
	}
	projects, err := s.source.Projects(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch projects: %w", err)
	}

	for _, u := range users {
		if _, err := s.sink.UpsertPerson(ctx, models.Person{Name: u.Name, Enabled: u.Enabled, ExternalID: u.ID}); err != nil {
			return report, fmt.Errorf("sync user %s: %w", u.ID, err)
		}
		report.People++
		if u.Enabled {
			report.EnabledPeople++
		}
	}

	keep := make([]string, 0, len(projects))
	for _, p := range projects {
		color := p.Color
		if color == "" {
			color = DefaultColor
		}
		project := models.Project{Name: p.Name, Color: color, Visible: p.Visible, Customer: p.Customer, ExternalID: p.ID}
		if _, err := s.sink.UpsertProject(ctx, project); err != nil {
			return report, fmt.Errorf("sync project %s: %w", p.ID, err)
		}
		keep = append(keep, p.ID)
		report.Projects++
	}

	hidden, err := s.sink.HideProjectsExcept(ctx, keep)
	if err != nil {
		return report, fmt.Errorf("hide removed projects: %w", err)
	}
	report.HiddenProjects = hidden
	report.Duration = time.Since(started)

	s.logger.Info("time tracker sync finished",
		slog.Int("people", report.People),
		slog.Int("enabled_people", report.EnabledPeople),
		slog.Int("projects", report.Projects),
		slog.Int("hidden_projects", report.HiddenProjects),
		slog.Duration("took", report.Duration),
	)
	return report, nil
}
