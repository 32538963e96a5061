package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"resourcecal/internal/admission"
	"resourcecal/internal/models"
	"resourcecal/internal/storage"
)

const assignmentColumns = `id, person_id, project_id, start_date, end_date, percentage, layer, batch_id, created_at, updated_at`

func scanAssignment(row interface{ Scan(...any) error }) (models.Assignment, error) {
	var a models.Assignment
	var layer sql.NullInt64
	if err := row.Scan(&a.ID, &a.PersonID, &a.ProjectID, &a.StartDate, &a.EndDate, &a.Percentage, &layer, &a.BatchID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return models.Assignment{}, err
	}
	if layer.Valid {
		v := int(layer.Int64)
		a.Layer = &v
	}
	return a, nil
}

func layerValue(layer *int) sql.NullInt64 {
	if layer == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*layer), Valid: true}
}

// assignmentRepo runs assignment queries against the pool or a transaction.
type assignmentRepo struct {
	q querier
}

func (r assignmentRepo) list(ctx context.Context, f storage.AssignmentQuery) ([]models.Assignment, error) {
	var where []string
	var args []any
	if f.PersonID > 0 {
		where = append(where, "person_id = ?")
		args = append(args, f.PersonID)
	}
	if f.ProjectID > 0 {
		where = append(where, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	if !f.From.IsZero() {
		where = append(where, "end_date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "start_date <= ?")
		args = append(args, f.To.String())
	}

	query := `SELECT ` + assignmentColumns + ` FROM assignments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY person_id, start_date, id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r assignmentRepo) get(ctx context.Context, id int64) (models.Assignment, error) {
	a, err := scanAssignment(r.q.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Assignment{}, fmt.Errorf("assignment %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return models.Assignment{}, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (r assignmentRepo) exists(ctx context.Context, table, kind string, id int64) error {
	var one int
	err := r.q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", kind, id, storage.ErrNotFound)
	}
	return err
}

func (r assignmentRepo) insert(ctx context.Context, a models.Assignment) (models.Assignment, error) {
	if err := r.exists(ctx, "projects", "project", a.ProjectID); err != nil {
		return models.Assignment{}, err
	}
	res, err := r.q.ExecContext(ctx, `INSERT INTO assignments(person_id, project_id, start_date, end_date, percentage, layer, batch_id)
        VALUES(?, ?, ?, ?, ?, ?, ?)`,
		a.PersonID, a.ProjectID, a.StartDate, a.EndDate, a.Percentage, layerValue(a.Layer), a.BatchID)
	if err != nil {
		return models.Assignment{}, fmt.Errorf("insert assignment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Assignment{}, fmt.Errorf("assignment id: %w", err)
	}
	return r.get(ctx, id)
}

func (r assignmentRepo) update(ctx context.Context, a models.Assignment) (models.Assignment, error) {
	if err := r.exists(ctx, "projects", "project", a.ProjectID); err != nil {
		return models.Assignment{}, err
	}
	res, err := r.q.ExecContext(ctx, `UPDATE assignments SET project_id = ?, start_date = ?, end_date = ?, percentage = ?, layer = ?
        WHERE id = ?`,
		a.ProjectID, a.StartDate, a.EndDate, a.Percentage, layerValue(a.Layer), a.ID)
	if err != nil {
		return models.Assignment{}, fmt.Errorf("update assignment: %w", err)
	}
	if err := expectRow(res, "assignment", a.ID); err != nil {
		return models.Assignment{}, err
	}
	return r.get(ctx, a.ID)
}

func (r assignmentRepo) delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM assignments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return expectRow(res, "assignment", id)
}

// ListAssignments returns assignments matching the query.
func (s *Store) ListAssignments(ctx context.Context, f storage.AssignmentQuery) ([]models.Assignment, error) {
	return assignmentRepo{q: s.db}.list(ctx, f)
}

// GetAssignment retrieves an assignment by id.
func (s *Store) GetAssignment(ctx context.Context, id int64) (models.Assignment, error) {
	return assignmentRepo{q: s.db}.get(ctx, id)
}

// InPersonTx runs fn inside a transaction holding the person's lock. The
// transaction commits only when fn returns nil.
func (s *Store) InPersonTx(ctx context.Context, personID int64, fn func(admission.Tx) error) (err error) {
	unlock := s.locks.lock(personID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	repo := assignmentRepo{q: tx}
	if err := repo.exists(ctx, "people", "person", personID); err != nil {
		return err
	}
	if err := fn(txStore{repo: repo}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// txStore adapts a transaction to admission.Tx.
type txStore struct {
	repo assignmentRepo
}

func (t txStore) AssignmentsByPerson(ctx context.Context, personID int64) ([]models.Assignment, error) {
	return t.repo.list(ctx, storage.AssignmentQuery{PersonID: personID})
}

func (t txStore) GetAssignment(ctx context.Context, id int64) (models.Assignment, error) {
	return t.repo.get(ctx, id)
}

func (t txStore) InsertAssignment(ctx context.Context, a models.Assignment) (models.Assignment, error) {
	return t.repo.insert(ctx, a)
}

func (t txStore) UpdateAssignment(ctx context.Context, a models.Assignment) (models.Assignment, error) {
	return t.repo.update(ctx, a)
}

func (t txStore) DeleteAssignment(ctx context.Context, id int64) error {
	return t.repo.delete(ctx, id)
}
