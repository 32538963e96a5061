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

const personColumns = `id, name, enabled, external_id, created_at, updated_at`

func scanPerson(row interface{ Scan(...any) error }) (models.Person, error) {
	var p models.Person
	var external sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Enabled, &external, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return models.Person{}, err
	}
	p.ExternalID = external.String
	return p, nil
}

// ListPeople returns people ordered by name. Disabled people are skipped
// unless includeDisabled is set.
func (s *Store) ListPeople(ctx context.Context, includeDisabled bool) ([]models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people`
	if !includeDisabled {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY name COLLATE NOCASE, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	var people []models.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// GetPerson fetches a single person by id.
func (s *Store) GetPerson(ctx context.Context, id int64) (models.Person, error) {
	p, err := scanPerson(s.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Person{}, fmt.Errorf("person %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return models.Person{}, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

// CreatePerson inserts a locally managed person.
func (s *Store) CreatePerson(ctx context.Context, p models.Person) (models.Person, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return models.Person{}, fmt.Errorf("person name must not be empty")
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO people(name, enabled, external_id) VALUES(?, ?, ?)`, name, p.Enabled, nullString(p.ExternalID))
	if err != nil {
		return models.Person{}, fmt.Errorf("insert person: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Person{}, fmt.Errorf("person id: %w", err)
	}
	return s.GetPerson(ctx, id)
}

// UpdatePerson renames a person or toggles the enabled flag.
func (s *Store) UpdatePerson(ctx context.Context, p models.Person) (models.Person, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return models.Person{}, fmt.Errorf("person name must not be empty")
	}

	res, err := s.db.ExecContext(ctx, `UPDATE people SET name = ?, enabled = ? WHERE id = ?`, name, p.Enabled, p.ID)
	if err != nil {
		return models.Person{}, fmt.Errorf("update person: %w", err)
	}
	if err := expectRow(res, "person", p.ID); err != nil {
		return models.Person{}, err
	}
	return s.GetPerson(ctx, p.ID)
}

// DeletePerson removes a person; the foreign key cascade drops their
// assignments.
func (s *Store) DeletePerson(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM people WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return expectRow(res, "person", id)
}

// UpsertPerson creates or overwrites a person identified by its external id.
func (s *Store) UpsertPerson(ctx context.Context, p models.Person) (models.Person, error) {
	if p.ExternalID == "" {
		return models.Person{}, fmt.Errorf("upsert person: external id is required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO people(name, enabled, external_id) VALUES(?, ?, ?)
        ON CONFLICT(external_id) DO UPDATE SET name = excluded.name, enabled = excluded.enabled`,
		strings.TrimSpace(p.Name), p.Enabled, p.ExternalID)
	if err != nil {
		return models.Person{}, fmt.Errorf("upsert person %s: %w", p.ExternalID, err)
	}
	out, err := scanPerson(s.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people WHERE external_id = ?`, p.ExternalID))
	if err != nil {
		return models.Person{}, fmt.Errorf("reload person %s: %w", p.ExternalID, err)
	}
	return out, nil
}

func expectRow(res sql.Result, kind string, id any) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s %v: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}
