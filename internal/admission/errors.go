package admission

import (
	"errors"
	"fmt"

	"resourcecal/internal/calendar"
)

// Business rule rejections. They are expected outcomes, not faults.
var (
	ErrValidation             = errors.New("invalid assignment")
	ErrDuplicateProjectInWeek = errors.New("project already assigned to this person in the same days")
	ErrCapacityExceeded       = errors.New("capacity ceiling exceeded")
)

// Rejection explains why a request was refused. Reason is one of the
// sentinel errors above or calendar.ErrIterationLimit.
type Rejection struct {
	Reason     error             `json:"-"`
	Segment    calendar.Interval `json:"segment"`
	Week       calendar.Day      `json:"week,omitempty"`
	Peak       int               `json:"peak,omitempty"`
	Ceiling    int               `json:"ceiling,omitempty"`
	ConflictID int64             `json:"conflict_id,omitempty"`
	Detail     string            `json:"detail,omitempty"`
}

func (r *Rejection) Error() string {
	switch {
	case errors.Is(r.Reason, ErrCapacityExceeded):
		return fmt.Sprintf("%v: week of %s would peak at %d%% (ceiling %d%%)", r.Reason, r.Week, r.Peak, r.Ceiling)
	case errors.Is(r.Reason, ErrDuplicateProjectInWeek):
		return fmt.Sprintf("%v: %s overlaps assignment %d", r.Reason, r.Segment, r.ConflictID)
	case r.Detail != "":
		return fmt.Sprintf("%v: %s", r.Reason, r.Detail)
	}
	return r.Reason.Error()
}

func (r *Rejection) Unwrap() error { return r.Reason }

// IsRejection reports whether err is a business rule rejection rather than a
// storage or system failure.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}

func invalid(format string, args ...any) *Rejection {
	return &Rejection{Reason: ErrValidation, Detail: fmt.Sprintf(format, args...)}
}
