package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"resourcecal/internal/models"
	"resourcecal/internal/storage"
)

const projectColumns = `id, name, color, visible, customer, external_id, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (models.Project, error) {
	var p models.Project
	var external sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Color, &p.Visible, &p.Customer, &external, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return models.Project{}, err
	}
	p.ExternalID = external.String
	return p, nil
}

// ListProjects retrieves projects ordered by name; hidden ones only on
// request.
func (s *Store) ListProjects(ctx context.Context, includeHidden bool) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if !includeHidden {
		query += ` WHERE visible = 1`
	}
	query += ` ORDER BY name COLLATE NOCASE, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// CreateProject persists a new project with optional color.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return models.Project{}, fmt.Errorf("project name must not be empty")
	}
	if p.Color == "" {
		p.Color = storage.PaletteColor(name)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO projects(name, color, visible, customer, external_id) VALUES(?, ?, ?, ?, ?)`,
		name, p.Color, p.Visible, strings.TrimSpace(p.Customer), nullString(p.ExternalID))
	if err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Project{}, fmt.Errorf("project id: %w", err)
	}
	return s.GetProject(ctx, id)
}

// UpdateProject overwrites name, color, visibility and customer.
func (s *Store) UpdateProject(ctx context.Context, p models.Project) (models.Project, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return models.Project{}, fmt.Errorf("project name must not be empty")
	}
	if p.Color == "" {
		p.Color = storage.PaletteColor(name)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ?, color = ?, visible = ?, customer = ? WHERE id = ?`,
		name, p.Color, p.Visible, strings.TrimSpace(p.Customer), p.ID)
	if err != nil {
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	if err := expectRow(res, "project", p.ID); err != nil {
		return models.Project{}, err
	}
	return s.GetProject(ctx, p.ID)
}

// DeleteProject removes a project along with its assignments.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return expectRow(res, "project", id)
}

// UpsertProject creates or overwrites a project identified by external id.
func (s *Store) UpsertProject(ctx context.Context, p models.Project) (models.Project, error) {
	if p.ExternalID == "" {
		return models.Project{}, fmt.Errorf("upsert project: external id is required")
	}
	if p.Color == "" {
		p.Color = storage.PaletteColor(p.Name)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects(name, color, visible, customer, external_id) VALUES(?, ?, ?, ?, ?)
        ON CONFLICT(external_id) DO UPDATE SET name = excluded.name, color = excluded.color,
            visible = excluded.visible, customer = excluded.customer`,
		strings.TrimSpace(p.Name), p.Color, p.Visible, strings.TrimSpace(p.Customer), p.ExternalID)
	if err != nil {
		return models.Project{}, fmt.Errorf("upsert project %s: %w", p.ExternalID, err)
	}
	out, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE external_id = ?`, p.ExternalID))
	if err != nil {
		return models.Project{}, fmt.Errorf("reload project %s: %w", p.ExternalID, err)
	}
	return out, nil
}

// HideProjectsExcept marks every synced project whose external id is not in
// keep as not visible and returns how many changed.
func (s *Store) HideProjectsExcept(ctx context.Context, keep []string) (int, error) {
	query := `UPDATE projects SET visible = 0 WHERE external_id IS NOT NULL AND visible = 1`
	args := make([]any, 0, len(keep))
	if len(keep) > 0 {
		query += ` AND external_id NOT IN (?` + strings.Repeat(",?", len(keep)-1) + `)`
		for _, id := range keep {
			args = append(args, id)
		}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("hide projects: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
