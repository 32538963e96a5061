package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resourcecal/internal/models"
)

type projectRequest struct {
	Name     string  `json:"name"`
	Color    string  `json:"color"`
	Visible  *bool   `json:"visible"`
	Customer *string `json:"customer"`
}

// handleListProjects returns visible projects, or all with ?all=true.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.store.ListProjects(c.Request.Context(), c.Query("all") == "true")
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleCreateProject creates a new project entity.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}

	project := models.Project{Name: req.Name, Color: req.Color, Visible: true}
	if req.Visible != nil {
		project.Visible = *req.Visible
	}
	if req.Customer != nil {
		project.Customer = *req.Customer
	}
	created, err := s.store.CreateProject(c.Request.Context(), project)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	s.changed(c)
	respondSuccess(c, http.StatusCreated, gin.H{"project": created})
}

// handleUpdateProject renames, recolors or hides an existing project.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	current, err := s.store.GetProject(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, storeStatus(err, http.StatusInternalServerError), err)
		return
	}
	if strings.TrimSpace(req.Name) != "" {
		current.Name = req.Name
	}
	if req.Color != "" {
		current.Color = req.Color
	}
	if req.Visible != nil {
		current.Visible = *req.Visible
	}
	if req.Customer != nil {
		current.Customer = *req.Customer
	}

	project, err := s.store.UpdateProject(c.Request.Context(), current)
	if err != nil {
		s.respondError(c, storeStatus(err, http.StatusBadRequest), err)
		return
	}
	s.changed(c)
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteProject removes a project and all related assignments.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteProject(c.Request.Context(), id); err != nil {
		s.respondError(c, storeStatus(err, http.StatusInternalServerError), err)
		return
	}
	s.changed(c)
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
