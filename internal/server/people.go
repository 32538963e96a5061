package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resourcecal/internal/calendar"
	"resourcecal/internal/models"
)

type personRequest struct {
	Name    string `json:"name"`
	Enabled *bool  `json:"enabled"`
}

// handleListPeople returns enabled people, or everyone with ?all=true.
func (s *Server) handleListPeople(c *gin.Context) {
	people, err := s.store.ListPeople(c.Request.Context(), c.Query("all") == "true")
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"people": people})
}

func (s *Server) handleCreatePerson(c *gin.Context) {
	var req personRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	person, err := s.store.CreatePerson(c.Request.Context(), models.Person{Name: req.Name, Enabled: enabled})
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	s.changed(c)
	respondSuccess(c, http.StatusCreated, gin.H{"person": person})
}

// handleUpdatePerson renames a person or toggles whether they can be booked.
func (s *Server) handleUpdatePerson(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req personRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	current, err := s.store.GetPerson(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, storeStatus(err, http.StatusInternalServerError), err)
		return
	}
	if strings.TrimSpace(req.Name) != "" {
		current.Name = req.Name
	}
	if req.Enabled != nil {
		current.Enabled = *req.Enabled
	}

	person, err := s.store.UpdatePerson(c.Request.Context(), current)
	if err != nil {
		s.respondError(c, storeStatus(err, http.StatusBadRequest), err)
		return
	}
	s.changed(c)
	respondSuccess(c, http.StatusOK, gin.H{"person": person})
}

// handleDeletePerson removes a person and all their assignments.
func (s *Server) handleDeletePerson(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeletePerson(c.Request.Context(), id); err != nil {
		s.respondError(c, storeStatus(err, http.StatusInternalServerError), err)
		return
	}
	s.changed(c)
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handlePersonCapacity reports the daily load and peak of one week.
func (s *Server) handlePersonCapacity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	day := s.today()
	if raw := c.Query("week"); raw != "" {
		parsed, err := calendar.ParseDay(raw)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		day = parsed
	}
	week := day.Week()

	if _, err := s.store.GetPerson(c.Request.Context(), id); err != nil {
		s.respondError(c, storeStatus(err, http.StatusInternalServerError), err)
		return
	}
	assignments, err := s.store.ListAssignments(c.Request.Context(), storageWindow(id, week))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	allocs := models.Allocations(assignments)
	peak := calendar.PeakCapacity(allocs, week.Start)
	year, number := week.Start.ISOWeek()
	respondSuccess(c, http.StatusOK, gin.H{
		"person_id": id,
		"year":      year,
		"week":      number,
		"start":     week.Start,
		"end":       week.End,
		"peak":      peak,
		"band":      calendar.Band(peak),
		"ceiling":   s.planner.Ceiling(),
		"days":      calendar.DailyLoad(allocs, week),
	})
}
