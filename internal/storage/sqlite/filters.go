package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"resourcecal/internal/models"
	"resourcecal/internal/storage"
)

func scanFilter(row interface{ Scan(...any) error }) (models.Filter, error) {
	var f models.Filter
	var ids string
	if err := row.Scan(&f.ID, &f.Name, &ids, &f.CreatedAt); err != nil {
		return models.Filter{}, err
	}
	if err := json.Unmarshal([]byte(ids), &f.PersonIDs); err != nil {
		return models.Filter{}, fmt.Errorf("decode person ids of filter %s: %w", f.ID, err)
	}
	return f, nil
}

// ListFilters returns saved filters oldest first.
func (s *Store) ListFilters(ctx context.Context) ([]models.Filter, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, person_ids, created_at FROM filters ORDER BY created_at ASC, id`)
	if err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}
	defer rows.Close()

	var filters []models.Filter
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan filter: %w", err)
		}
		filters = append(filters, f)
	}
	return filters, rows.Err()
}

// GetFilter fetches one saved filter.
func (s *Store) GetFilter(ctx context.Context, id string) (models.Filter, error) {
	f, err := scanFilter(s.db.QueryRowContext(ctx, `SELECT id, name, person_ids, created_at FROM filters WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Filter{}, fmt.Errorf("filter %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return models.Filter{}, fmt.Errorf("get filter: %w", err)
	}
	return f, nil
}

// CreateFilter stores a named selection of people.
func (s *Store) CreateFilter(ctx context.Context, f models.Filter) (models.Filter, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return models.Filter{}, fmt.Errorf("filter name must not be empty")
	}
	if f.PersonIDs == nil {
		f.PersonIDs = []int64{}
	}
	ids, err := json.Marshal(f.PersonIDs)
	if err != nil {
		return models.Filter{}, fmt.Errorf("encode person ids: %w", err)
	}

	id := ulid.Make().String()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO filters(id, name, person_ids) VALUES(?, ?, ?)`, id, name, string(ids)); err != nil {
		return models.Filter{}, fmt.Errorf("insert filter: %w", err)
	}
	return s.GetFilter(ctx, id)
}

// DeleteFilter removes a saved filter.
func (s *Store) DeleteFilter(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM filters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete filter: %w", err)
	}
	return expectRow(res, "filter", id)
}
