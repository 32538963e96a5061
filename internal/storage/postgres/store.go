// Package postgres is the PostgreSQL store, mapped with gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"resourcecal/internal/admission"
	"resourcecal/internal/models"
	"resourcecal/internal/storage"
)

// Store keeps people, projects, assignments and filters in PostgreSQL.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects with the given DSN and migrates the schema.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.AutoMigrate(&personRecord{}, &projectRecord{}, &assignmentRecord{}, &filterRecord{}); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}

	logger.Info("postgres store ready")
	return &Store{db: db, logger: logger}, nil
}

// Close releases the pool behind gorm.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFound(err error, kind string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", kind, id, storage.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", kind, err)
}

func affected(res *gorm.DB, kind string, id any) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %v: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}

// ListPeople returns people ordered by name.
func (s *Store) ListPeople(ctx context.Context, includeDisabled bool) ([]models.Person, error) {
	var records []personRecord
	q := s.db.WithContext(ctx).Order("lower(name), id")
	if !includeDisabled {
		q = q.Where("enabled = ?", true)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	people := make([]models.Person, len(records))
	for i, r := range records {
		people[i] = r.model()
	}
	return people, nil
}

// GetPerson fetches a single person by id.
func (s *Store) GetPerson(ctx context.Context, id int64) (models.Person, error) {
	var r personRecord
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return models.Person{}, notFound(err, "person", id)
	}
	return r.model(), nil
}

// CreatePerson inserts a locally managed person.
func (s *Store) CreatePerson(ctx context.Context, p models.Person) (models.Person, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return models.Person{}, fmt.Errorf("person name must not be empty")
	}
	r := fromPerson(p)
	r.ID = 0
	// Select keeps gorm from replacing a false Enabled with the column default.
	if err := s.db.WithContext(ctx).Select("Name", "Enabled", "ExternalID", "CreatedAt", "UpdatedAt").Create(&r).Error; err != nil {
		return models.Person{}, fmt.Errorf("insert person: %w", err)
	}
	return s.GetPerson(ctx, r.ID)
}

// UpdatePerson renames a person or toggles the enabled flag.
func (s *Store) UpdatePerson(ctx context.Context, p models.Person) (models.Person, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return models.Person{}, fmt.Errorf("person name must not be empty")
	}
	res := s.db.WithContext(ctx).Model(&personRecord{}).Where("id = ?", p.ID).
		Updates(map[string]any{"name": name, "enabled": p.Enabled})
	if err := affected(res, "person", p.ID); err != nil {
		return models.Person{}, err
	}
	return s.GetPerson(ctx, p.ID)
}

// DeletePerson removes a person; assignments cascade.
func (s *Store) DeletePerson(ctx context.Context, id int64) error {
	return affected(s.db.WithContext(ctx).Delete(&personRecord{}, id), "person", id)
}

// UpsertPerson creates or overwrites a person by external id.
func (s *Store) UpsertPerson(ctx context.Context, p models.Person) (models.Person, error) {
	if p.ExternalID == "" {
		return models.Person{}, fmt.Errorf("upsert person: external id is required")
	}
	r := fromPerson(p)
	r.ID = 0
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "enabled", "updated_at"}),
	}).Select("Name", "Enabled", "ExternalID", "CreatedAt", "UpdatedAt").Create(&r).Error
	if err != nil {
		return models.Person{}, fmt.Errorf("upsert person %s: %w", p.ExternalID, err)
	}
	var out personRecord
	if err := s.db.WithContext(ctx).Where("external_id = ?", p.ExternalID).First(&out).Error; err != nil {
		return models.Person{}, notFound(err, "person", p.ExternalID)
	}
	return out.model(), nil
}

// ListProjects returns projects ordered by name.
func (s *Store) ListProjects(ctx context.Context, includeHidden bool) ([]models.Project, error) {
	var records []projectRecord
	q := s.db.WithContext(ctx).Order("lower(name), id")
	if !includeHidden {
		q = q.Where("visible = ?", true)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects := make([]models.Project, len(records))
	for i, r := range records {
		projects[i] = r.model()
	}
	return projects, nil
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	var r projectRecord
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return models.Project{}, notFound(err, "project", id)
	}
	return r.model(), nil
}

// CreateProject persists a new project with optional color.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return models.Project{}, fmt.Errorf("project name must not be empty")
	}
	if p.Color == "" {
		p.Color = storage.PaletteColor(p.Name)
	}
	r := fromProject(p)
	r.ID = 0
	if err := s.db.WithContext(ctx).Select("Name", "Color", "Visible", "Customer", "ExternalID", "CreatedAt", "UpdatedAt").Create(&r).Error; err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return s.GetProject(ctx, r.ID)
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
	res := s.db.WithContext(ctx).Model(&projectRecord{}).Where("id = ?", p.ID).Updates(map[string]any{
		"name": name, "color": p.Color, "visible": p.Visible, "customer": strings.TrimSpace(p.Customer),
	})
	if err := affected(res, "project", p.ID); err != nil {
		return models.Project{}, err
	}
	return s.GetProject(ctx, p.ID)
}

// DeleteProject removes a project; assignments cascade.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	return affected(s.db.WithContext(ctx).Delete(&projectRecord{}, id), "project", id)
}

// UpsertProject creates or overwrites a project by external id.
func (s *Store) UpsertProject(ctx context.Context, p models.Project) (models.Project, error) {
	if p.ExternalID == "" {
		return models.Project{}, fmt.Errorf("upsert project: external id is required")
	}
	if p.Color == "" {
		p.Color = storage.PaletteColor(p.Name)
	}
	r := fromProject(p)
	r.ID = 0
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "color", "visible", "customer", "updated_at"}),
	}).Select("Name", "Color", "Visible", "Customer", "ExternalID", "CreatedAt", "UpdatedAt").Create(&r).Error
	if err != nil {
		return models.Project{}, fmt.Errorf("upsert project %s: %w", p.ExternalID, err)
	}
	var out projectRecord
	if err := s.db.WithContext(ctx).Where("external_id = ?", p.ExternalID).First(&out).Error; err != nil {
		return models.Project{}, notFound(err, "project", p.ExternalID)
	}
	return out.model(), nil
}

// HideProjectsExcept marks synced projects missing from keep as not visible.
func (s *Store) HideProjectsExcept(ctx context.Context, keep []string) (int, error) {
	q := s.db.WithContext(ctx).Model(&projectRecord{}).Where("external_id IS NOT NULL AND visible = ?", true)
	if len(keep) > 0 {
		q = q.Where("external_id NOT IN ?", keep)
	}
	res := q.Update("visible", false)
	if res.Error != nil {
		return 0, fmt.Errorf("hide projects: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// ListAssignments returns assignments matching the query.
func (s *Store) ListAssignments(ctx context.Context, f storage.AssignmentQuery) ([]models.Assignment, error) {
	return listAssignments(s.db.WithContext(ctx), f)
}

// GetAssignment retrieves an assignment by id.
func (s *Store) GetAssignment(ctx context.Context, id int64) (models.Assignment, error) {
	return getAssignment(s.db.WithContext(ctx), id)
}

func listAssignments(db *gorm.DB, f storage.AssignmentQuery) ([]models.Assignment, error) {
	q := db.Model(&assignmentRecord{})
	if f.PersonID > 0 {
		q = q.Where("person_id = ?", f.PersonID)
	}
	if f.ProjectID > 0 {
		q = q.Where("project_id = ?", f.ProjectID)
	}
	if !f.From.IsZero() {
		q = q.Where("end_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("start_date <= ?", f.To)
	}
	var records []assignmentRecord
	if err := q.Order("person_id, start_date, id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	out := make([]models.Assignment, len(records))
	for i, r := range records {
		out[i] = r.model()
	}
	return out, nil
}

func getAssignment(db *gorm.DB, id int64) (models.Assignment, error) {
	var r assignmentRecord
	if err := db.First(&r, id).Error; err != nil {
		return models.Assignment{}, notFound(err, "assignment", id)
	}
	return r.model(), nil
}

// InPersonTx locks the person row for the length of a transaction, so
// admissions for one person run one at a time.
func (s *Store) InPersonTx(ctx context.Context, personID int64, fn func(admission.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var person personRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&person, personID).Error
		if err != nil {
			return notFound(err, "person", personID)
		}
		return fn(gormTx{db: tx})
	})
}

type gormTx struct {
	db *gorm.DB
}

func (t gormTx) AssignmentsByPerson(ctx context.Context, personID int64) ([]models.Assignment, error) {
	return listAssignments(t.db.WithContext(ctx), storage.AssignmentQuery{PersonID: personID})
}

func (t gormTx) GetAssignment(ctx context.Context, id int64) (models.Assignment, error) {
	return getAssignment(t.db.WithContext(ctx), id)
}

func (t gormTx) projectExists(ctx context.Context, id int64) error {
	var p projectRecord
	if err := t.db.WithContext(ctx).Select("id").First(&p, id).Error; err != nil {
		return notFound(err, "project", id)
	}
	return nil
}

func (t gormTx) InsertAssignment(ctx context.Context, a models.Assignment) (models.Assignment, error) {
	if err := t.projectExists(ctx, a.ProjectID); err != nil {
		return models.Assignment{}, err
	}
	r := fromAssignment(a)
	r.ID = 0
	if err := t.db.WithContext(ctx).Omit(clause.Associations).Create(&r).Error; err != nil {
		return models.Assignment{}, fmt.Errorf("insert assignment: %w", err)
	}
	return getAssignment(t.db.WithContext(ctx), r.ID)
}

func (t gormTx) UpdateAssignment(ctx context.Context, a models.Assignment) (models.Assignment, error) {
	if err := t.projectExists(ctx, a.ProjectID); err != nil {
		return models.Assignment{}, err
	}
	res := t.db.WithContext(ctx).Model(&assignmentRecord{}).Where("id = ?", a.ID).Updates(map[string]any{
		"project_id": a.ProjectID,
		"start_date": a.StartDate,
		"end_date":   a.EndDate,
		"percentage": a.Percentage,
		"layer":      a.Layer,
	})
	if err := affected(res, "assignment", a.ID); err != nil {
		return models.Assignment{}, err
	}
	return getAssignment(t.db.WithContext(ctx), a.ID)
}

func (t gormTx) DeleteAssignment(ctx context.Context, id int64) error {
	return affected(t.db.WithContext(ctx).Delete(&assignmentRecord{}, id), "assignment", id)
}

// ListFilters returns saved filters oldest first.
func (s *Store) ListFilters(ctx context.Context) ([]models.Filter, error) {
	var records []filterRecord
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}
	filters := make([]models.Filter, len(records))
	for i, r := range records {
		filters[i] = r.model()
	}
	return filters, nil
}

// GetFilter fetches one saved filter.
func (s *Store) GetFilter(ctx context.Context, id string) (models.Filter, error) {
	var r filterRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return models.Filter{}, notFound(err, "filter", id)
	}
	return r.model(), nil
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
	r := filterRecord{ID: ulid.Make().String(), Name: name, PersonIDs: f.PersonIDs}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return models.Filter{}, fmt.Errorf("insert filter: %w", err)
	}
	return r.model(), nil
}

// DeleteFilter removes a saved filter.
func (s *Store) DeleteFilter(ctx context.Context, id string) error {
	return affected(s.db.WithContext(ctx).Where("id = ?", id).Delete(&filterRecord{}), "filter", id)
}
