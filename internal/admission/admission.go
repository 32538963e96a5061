package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"resourcecal/internal/calendar"
	"resourcecal/internal/models"
)

// Tx is the view of storage inside one per-person transaction.
type Tx interface {
	AssignmentsByPerson(ctx context.Context, personID int64) ([]models.Assignment, error)
	GetAssignment(ctx context.Context, id int64) (models.Assignment, error)
	InsertAssignment(ctx context.Context, a models.Assignment) (models.Assignment, error)
	UpdateAssignment(ctx context.Context, a models.Assignment) (models.Assignment, error)
	DeleteAssignment(ctx context.Context, id int64) error
}

// Repository runs fn with at most one concurrent admission per person.
// Writes made through the Tx become visible only when fn returns nil.
type Repository interface {
	InPersonTx(ctx context.Context, personID int64, fn func(Tx) error) error
	GetAssignment(ctx context.Context, id int64) (models.Assignment, error)
}

// Config tunes the capacity policy.
type Config struct {
	// Ceiling is the highest allowed single-day load in percent.
	Ceiling int
	// FlatCheck switches to the week level pre-check: current peak plus the
	// new percentage, regardless of which days the new work falls on.
	FlatCheck bool
}

// Controller accepts, rejects or splits assignment writes before they are
// persisted.
type Controller struct {
	repo      Repository
	ceiling   int
	flatCheck bool
	logger    *slog.Logger
}

// New builds a controller; a zero ceiling falls back to the default.
func New(repo Repository, cfg Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	ceiling := cfg.Ceiling
	if ceiling <= 0 {
		ceiling = calendar.DefaultCeiling
	}
	return &Controller{repo: repo, ceiling: ceiling, flatCheck: cfg.FlatCheck, logger: logger}
}

// Ceiling exposes the configured limit.
func (c *Controller) Ceiling() int { return c.ceiling }

// Result is the full batch stored for one admitted request.
type Result struct {
	BatchID     string              `json:"batch_id"`
	Assignments []models.Assignment `json:"assignments"`
}

// Segment splits a requested assignment into per-week records sharing its
// person, project, percentage and layer.
func Segment(a models.Assignment) ([]models.Assignment, error) {
	spans, err := calendar.SplitWeeks(a.Span())
	if err != nil {
		return nil, err
	}
	segments := make([]models.Assignment, len(spans))
	for i, s := range spans {
		seg := a
		seg.ID = 0
		seg.StartDate = s.Start
		seg.EndDate = s.End
		segments[i] = seg
	}
	return segments, nil
}

// Admit validates a new assignment, splits it at week boundaries and stores
// every segment, or none of them.
func (c *Controller) Admit(ctx context.Context, req models.Assignment) (Result, error) {
	req.StartDate = calendar.Normalize(req.StartDate.Time())
	req.EndDate = calendar.Normalize(req.EndDate.Time())
	if err := req.Validate(); err != nil {
		return Result{}, &Rejection{Reason: ErrValidation, Detail: err.Error()}
	}

	segments, err := Segment(req)
	if err != nil {
		if errors.Is(err, calendar.ErrIterationLimit) {
			return Result{}, &Rejection{Reason: calendar.ErrIterationLimit, Segment: req.Span(), Detail: err.Error()}
		}
		return Result{}, &Rejection{Reason: ErrValidation, Detail: err.Error()}
	}

	batchID := ulid.Make().String()
	var saved []models.Assignment
	err = c.repo.InPersonTx(ctx, req.PersonID, func(tx Tx) error {
		existing, err := tx.AssignmentsByPerson(ctx, req.PersonID)
		if err != nil {
			return fmt.Errorf("load assignments: %w", err)
		}

		for _, seg := range segments {
			if rej := findDuplicate(existing, seg); rej != nil {
				return rej
			}
		}

		booked := existing
		for _, seg := range segments {
			if rej := c.checkCapacity(booked, seg); rej != nil {
				return rej
			}
			booked = append(booked, seg)
		}

		saved = make([]models.Assignment, 0, len(segments))
		for i, seg := range segments {
			seg.BatchID = batchID
			stored, err := tx.InsertAssignment(ctx, seg)
			if err != nil {
				return fmt.Errorf("persist segment %d of %d (%s): %w", i+1, len(segments), seg.Span(), err)
			}
			saved = append(saved, stored)
		}
		return nil
	})
	if err != nil {
		c.logRejection("assignment rejected", req, err)
		return Result{}, err
	}

	c.logger.Info("assignment admitted",
		slog.Int64("person_id", req.PersonID),
		slog.Int64("project_id", req.ProjectID),
		slog.String("span", req.Span().String()),
		slog.Int("segments", len(saved)),
		slog.String("batch_id", batchID))
	return Result{BatchID: batchID, Assignments: saved}, nil
}

// Patch lists the fields an update may change; nil means unchanged.
type Patch struct {
	ProjectID  *int64        `json:"project_id"`
	StartDate  *calendar.Day `json:"start_date"`
	EndDate    *calendar.Day `json:"end_date"`
	Percentage *int          `json:"percentage"`
	Layer      *int          `json:"layer"`
}

func (p Patch) apply(a models.Assignment) models.Assignment {
	if p.ProjectID != nil {
		a.ProjectID = *p.ProjectID
	}
	if p.StartDate != nil {
		a.StartDate = calendar.Normalize(p.StartDate.Time())
	}
	if p.EndDate != nil {
		a.EndDate = calendar.Normalize(p.EndDate.Time())
	}
	if p.Percentage != nil {
		a.Percentage = *p.Percentage
	}
	if p.Layer != nil {
		layer := *p.Layer
		a.Layer = &layer
	}
	return a
}

// Update changes an assignment in place after re-checking capacity on the
// post-update set. On rejection nothing is written.
func (c *Controller) Update(ctx context.Context, id int64, patch Patch) (models.Assignment, error) {
	current, err := c.repo.GetAssignment(ctx, id)
	if err != nil {
		return models.Assignment{}, err
	}

	var updated models.Assignment
	err = c.repo.InPersonTx(ctx, current.PersonID, func(tx Tx) error {
		// Re-read under the person lock; the row may have moved since.
		current, err := tx.GetAssignment(ctx, id)
		if err != nil {
			return err
		}
		candidate := patch.apply(current)
		if err := candidate.Validate(); err != nil {
			return &Rejection{Reason: ErrValidation, Detail: err.Error()}
		}

		existing, err := tx.AssignmentsByPerson(ctx, current.PersonID)
		if err != nil {
			return fmt.Errorf("load assignments: %w", err)
		}
		if rej := c.checkReplacement(existing, []models.Assignment{current}, []models.Assignment{candidate}); rej != nil {
			return rej
		}

		updated, err = tx.UpdateAssignment(ctx, candidate)
		return err
	})
	if err != nil {
		c.logRejection("assignment update rejected", current, err)
		return models.Assignment{}, err
	}
	return updated, nil
}

// Delete removes an assignment unconditionally.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	current, err := c.repo.GetAssignment(ctx, id)
	if err != nil {
		return err
	}
	return c.repo.InPersonTx(ctx, current.PersonID, func(tx Tx) error {
		return tx.DeleteAssignment(ctx, id)
	})
}

func findDuplicate(existing []models.Assignment, seg models.Assignment) *Rejection {
	for _, e := range existing {
		if e.ProjectID == seg.ProjectID && calendar.Overlaps(e.Span(), seg.Span()) {
			return &Rejection{Reason: ErrDuplicateProjectInWeek, Segment: seg.Span(), ConflictID: e.ID}
		}
	}
	return nil
}

// checkCapacity tests one new segment against every week it touches.
func (c *Controller) checkCapacity(booked []models.Assignment, seg models.Assignment) *Rejection {
	allocs := models.Allocations(booked)
	for _, week := range seg.Span().Weeks() {
		var peak int
		if c.flatCheck {
			if calendar.ValidateCapacity(allocs, seg.Percentage, week, c.ceiling) {
				continue
			}
			peak = calendar.PeakCapacity(allocs, week) + seg.Percentage
		} else {
			peak = calendar.PeakWithCandidate(allocs, seg.Allocation(), week)
			if peak <= c.ceiling {
				continue
			}
		}
		return &Rejection{Reason: ErrCapacityExceeded, Segment: seg.Span(), Week: week, Peak: peak, Ceiling: c.ceiling}
	}
	return nil
}

// checkReplacement compares the peak of each affected week before and after
// swapping removed for added. A week already over the ceiling may stay there
// as long as the change does not make it worse.
func (c *Controller) checkReplacement(existing, removed, added []models.Assignment) *Rejection {
	drop := make(map[int64]struct{}, len(removed))
	for _, r := range removed {
		drop[r.ID] = struct{}{}
	}
	after := make([]models.Assignment, 0, len(existing)+len(added))
	for _, e := range existing {
		if _, ok := drop[e.ID]; !ok {
			after = append(after, e)
		}
	}
	after = append(after, added...)

	beforeAllocs := models.Allocations(existing)
	afterAllocs := models.Allocations(after)
	seen := map[calendar.Day]struct{}{}
	for _, a := range added {
		for _, week := range a.Span().Weeks() {
			if _, ok := seen[week]; ok {
				continue
			}
			seen[week] = struct{}{}
			peakAfter := calendar.PeakCapacity(afterAllocs, week)
			if peakAfter <= c.ceiling {
				continue
			}
			if peakAfter > calendar.PeakCapacity(beforeAllocs, week) {
				return &Rejection{Reason: ErrCapacityExceeded, Segment: a.Span(), Week: week, Peak: peakAfter, Ceiling: c.ceiling}
			}
		}
	}
	return nil
}

func (c *Controller) logRejection(msg string, a models.Assignment, err error) {
	attrs := []any{
		slog.Int64("person_id", a.PersonID),
		slog.Int64("project_id", a.ProjectID),
		slog.String("error", err.Error()),
	}
	if IsRejection(err) {
		c.logger.Warn(msg, attrs...)
		return
	}
	c.logger.Error(msg, attrs...)
}
