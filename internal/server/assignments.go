package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resourcecal/internal/admission"
	"resourcecal/internal/calendar"
	"resourcecal/internal/models"
	"resourcecal/internal/storage"
)

type assignmentRequest struct {
	PersonID   int64        `json:"person_id"`
	ProjectID  int64        `json:"project_id"`
	StartDate  calendar.Day `json:"start_date"`
	EndDate    calendar.Day `json:"end_date"`
	Percentage *int         `json:"percentage"`
	Layer      *int         `json:"layer"`
}

type assignmentPatchRequest struct {
	admission.Patch
	PersonID *int64 `json:"person_id"`
}

type weekRequest struct {
	Week       calendar.Day `json:"week"`
	Percentage *int         `json:"percentage"`
}

func storageWindow(personID int64, iv calendar.Interval) storage.AssignmentQuery {
	return storage.AssignmentQuery{PersonID: personID, From: iv.Start, To: iv.End}
}

// handleListAssignments lists assignments overlapping ?from..?to, optionally
// for one person.
func (s *Server) handleListAssignments(c *gin.Context) {
	var q storage.AssignmentQuery
	for param, dst := range map[string]*calendar.Day{"from": &q.From, "to": &q.To} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		day, err := calendar.ParseDay(raw)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, fmt.Errorf("%s: %w", param, err))
			return
		}
		*dst = day
	}
	if raw := c.Query("person_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, fmt.Errorf("person_id: %w", err))
			return
		}
		q.PersonID = id
	}

	assignments, err := s.store.ListAssignments(c.Request.Context(), q)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}
	respondSuccess(c, http.StatusOK, gin.H{"assignments": assignments})
}

// handleAdmitAssignment books a new assignment, split per week.
func (s *Server) handleAdmitAssignment(c *gin.Context) {
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Percentage == nil {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("percentage is required"))
		return
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("start_date and end_date are required"))
		return
	}

	res, err := s.planner.Admit(c.Request.Context(), models.Assignment{
		PersonID:   req.PersonID,
		ProjectID:  req.ProjectID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Percentage: *req.Percentage,
		Layer:      req.Layer,
	})
	if err != nil {
		s.respondFailure(c, err)
		return
	}
	s.changed(c)
	respondSuccess(c, http.StatusCreated, res)
}

// handleUpdateAssignment changes dates, project, percentage or layer.
func (s *Server) handleUpdateAssignment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req assignmentPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.PersonID != nil {
		current, err := s.store.GetAssignment(c.Request.Context(), id)
		if err != nil {
			s.respondFailure(c, err)
			return
		}
		if current.PersonID != *req.PersonID {
			s.respondError(c, http.StatusBadRequest, fmt.Errorf("an assignment cannot move to another person"))
			return
		}
	}

	updated, err := s.planner.Update(c.Request.Context(), id, req.Patch)
	if err != nil {
		s.respondFailure(c, err)
		return
	}
	s.changed(c)
	respondSuccess(c, http.StatusOK, gin.H{"assignment": updated})
}

func (s *Server) handleDeleteAssignment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.planner.Delete(c.Request.Context(), id); err != nil {
		s.respondFailure(c, err)
		return
	}
	s.changed(c)
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleRemoveWeek cuts one week out of an assignment.
func (s *Server) handleRemoveWeek(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req weekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	pieces, err := s.planner.RemoveWeek(c.Request.Context(), id, req.Week)
	if err != nil {
		s.respondFailure(c, err)
		return
	}
	s.changed(c)
	respondSuccess(c, http.StatusOK, gin.H{"assignments": pieces})
}

// handleSetWeekPercentage changes the percentage of a single week.
func (s *Server) handleSetWeekPercentage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req weekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Percentage == nil {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("percentage is required"))
		return
	}

	pieces, err := s.planner.SetWeekPercentage(c.Request.Context(), id, req.Week, *req.Percentage)
	if err != nil {
		s.respondFailure(c, err)
		return
	}
	s.changed(c)
	respondSuccess(c, http.StatusOK, gin.H{"assignments": pieces})
}
