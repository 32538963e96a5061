package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resourcecal/internal/models"
)

type filterRequest struct {
	Name      string  `json:"name"`
	PersonIDs []int64 `json:"person_ids"`
}

func (s *Server) handleListFilters(c *gin.Context) {
	filters, err := s.store.ListFilters(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	if filters == nil {
		filters = []models.Filter{}
	}
	respondSuccess(c, http.StatusOK, gin.H{"filters": filters})
}

// handleCreateFilter saves a named selection of people for the grid.
func (s *Server) handleCreateFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}

	filter, err := s.store.CreateFilter(c.Request.Context(), models.Filter{Name: req.Name, PersonIDs: req.PersonIDs})
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"filter": filter})
}

func (s *Server) handleDeleteFilter(c *gin.Context) {
	if err := s.store.DeleteFilter(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, storeStatus(err, http.StatusInternalServerError), err)
		return
	}
	s.changed(c)
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
