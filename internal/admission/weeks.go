package admission

import (
	"context"
	"fmt"
	"log/slog"

	"resourcecal/internal/calendar"
	"resourcecal/internal/models"
)

// weekEdit is the full effect of editing one week of an assignment:
// the original row goes away and the pieces in add replace it.
type weekEdit struct {
	original models.Assignment
	add      []models.Assignment
}

func planWeekEdit(a models.Assignment, week calendar.Interval, percentage *int) (weekEdit, error) {
	inWeek, ok := a.Span().Clip(week)
	if !ok {
		return weekEdit{}, invalid("assignment %d does not touch the week of %s", a.ID, week.Start)
	}

	edit := weekEdit{original: a}
	piece := func(start, end calendar.Day, pct int) models.Assignment {
		p := a
		p.ID = 0
		p.StartDate = start
		p.EndDate = end
		p.Percentage = pct
		return p
	}
	if a.StartDate.Before(week.Start) {
		edit.add = append(edit.add, piece(a.StartDate, week.Start.AddDays(-1), a.Percentage))
	}
	if percentage != nil {
		edit.add = append(edit.add, piece(inWeek.Start, inWeek.End, *percentage))
	}
	if a.EndDate.After(week.End) {
		edit.add = append(edit.add, piece(week.End.AddDays(1), a.EndDate, a.Percentage))
	}
	return edit, nil
}

// RemoveWeek cuts the given ISO week out of an assignment. The days before
// and after the week survive as separate assignments, which are returned.
func (c *Controller) RemoveWeek(ctx context.Context, id int64, day calendar.Day) ([]models.Assignment, error) {
	return c.editWeek(ctx, id, day, nil)
}

// SetWeekPercentage changes the percentage of an assignment for one ISO week
// only, splitting a longer assignment around that week. It returns the rows
// that replace the original.
func (c *Controller) SetWeekPercentage(ctx context.Context, id int64, day calendar.Day, percentage int) ([]models.Assignment, error) {
	if percentage < 0 || percentage > 100 {
		return nil, invalid("percentage %d outside 0..100", percentage)
	}
	return c.editWeek(ctx, id, day, &percentage)
}

func (c *Controller) editWeek(ctx context.Context, id int64, day calendar.Day, percentage *int) ([]models.Assignment, error) {
	if day.IsZero() {
		return nil, invalid("week is required")
	}
	week := day.Week()

	current, err := c.repo.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}

	var result []models.Assignment
	err = c.repo.InPersonTx(ctx, current.PersonID, func(tx Tx) error {
		current, err := tx.GetAssignment(ctx, id)
		if err != nil {
			return err
		}

		// An assignment living inside the week only needs a field change.
		if percentage != nil && !current.StartDate.Before(week.Start) && !current.EndDate.After(week.End) {
			candidate := current
			candidate.Percentage = *percentage
			existing, err := tx.AssignmentsByPerson(ctx, current.PersonID)
			if err != nil {
				return fmt.Errorf("load assignments: %w", err)
			}
			if rej := c.checkReplacement(existing, []models.Assignment{current}, []models.Assignment{candidate}); rej != nil {
				return rej
			}
			updated, err := tx.UpdateAssignment(ctx, candidate)
			if err != nil {
				return err
			}
			result = []models.Assignment{updated}
			return nil
		}

		edit, err := planWeekEdit(current, week, percentage)
		if err != nil {
			return err
		}
		if percentage != nil {
			existing, err := tx.AssignmentsByPerson(ctx, current.PersonID)
			if err != nil {
				return fmt.Errorf("load assignments: %w", err)
			}
			if rej := c.checkReplacement(existing, []models.Assignment{current}, edit.add); rej != nil {
				return rej
			}
		}

		if err := tx.DeleteAssignment(ctx, current.ID); err != nil {
			return fmt.Errorf("delete assignment %d: %w", current.ID, err)
		}
		result = make([]models.Assignment, 0, len(edit.add))
		for _, piece := range edit.add {
			stored, err := tx.InsertAssignment(ctx, piece)
			if err != nil {
				return fmt.Errorf("persist %s: %w", piece.Span(), err)
			}
			result = append(result, stored)
		}
		return nil
	})
	if err != nil {
		c.logRejection("week edit rejected", current, err)
		return nil, err
	}

	c.logger.Info("assignment week edited",
		slog.Int64("assignment_id", id),
		slog.String("week", week.Start.String()),
		slog.Int("pieces", len(result)))
	return result, nil
}
