package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resourcecal/internal/calendar"
	"resourcecal/internal/export"
	"resourcecal/internal/grid"
	"resourcecal/internal/models"
	"resourcecal/internal/storage"
)

const defaultGridWeeks = 8

type gridView struct {
	Grid     grid.Grid        `json:"grid"`
	Projects []models.Project `json:"projects"`
	Ceiling  int              `json:"ceiling"`
}

type gridQuery struct {
	from     calendar.Day
	weeks    int
	filterID string
}

func (s *Server) parseGridQuery(c *gin.Context) (gridQuery, error) {
	q := gridQuery{from: s.today(), weeks: defaultGridWeeks, filterID: c.Query("filter_id")}
	if raw := c.Query("from"); raw != "" {
		day, err := calendar.ParseDay(raw)
		if err != nil {
			return q, fmt.Errorf("from: %w", err)
		}
		q.from = day
	}
	if raw := c.Query("weeks"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > grid.MaxWeeks {
			return q, fmt.Errorf("weeks must be a number between 1 and %d", grid.MaxWeeks)
		}
		q.weeks = n
	}
	q.from = q.from.Monday()
	return q, nil
}

// loadGrid builds the grid for q, going through the cache first.
func (s *Server) loadGrid(c *gin.Context, q gridQuery) (gridView, error) {
	ctx := c.Request.Context()
	key := []string{q.from.String(), strconv.Itoa(q.weeks), q.filterID}

	var view gridView
	gen, hit := s.opts.Cache.Get(ctx, &view, key...)
	if hit {
		return view, nil
	}

	people, err := s.store.ListPeople(ctx, false)
	if err != nil {
		return view, err
	}
	if q.filterID != "" {
		f, err := s.store.GetFilter(ctx, q.filterID)
		if err != nil {
			return view, err
		}
		people = selectPeople(people, f.PersonIDs)
	}

	window, err := grid.Window(q.from, q.weeks)
	if err != nil {
		return view, err
	}
	assignments, err := s.store.ListAssignments(ctx, storage.AssignmentQuery{From: window.Start, To: window.End})
	if err != nil {
		return view, err
	}
	// Hidden projects stay in the lookup so their bars keep a name.
	projects, err := s.store.ListProjects(ctx, true)
	if err != nil {
		return view, err
	}

	g, err := grid.Build(people, assignments, projects, q.from, q.weeks)
	if err != nil {
		return view, err
	}
	view = gridView{Grid: g, Projects: projects, Ceiling: s.planner.Ceiling()}
	s.opts.Cache.Set(ctx, gen, view, key...)
	return view, nil
}

func selectPeople(people []models.Person, ids []int64) []models.Person {
	keep := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	out := make([]models.Person, 0, len(ids))
	for _, p := range people {
		if _, ok := keep[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

// handleGrid renders the planner grid as JSON.
func (s *Server) handleGrid(c *gin.Context) {
	q, err := s.parseGridQuery(c)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	view, err := s.loadGrid(c, q)
	if err != nil {
		s.respondError(c, storeStatus(err, http.StatusInternalServerError), err)
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

// handleGridExport downloads the same grid as a workbook.
func (s *Server) handleGridExport(c *gin.Context) {
	q, err := s.parseGridQuery(c)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	view, err := s.loadGrid(c, q)
	if err != nil {
		s.respondError(c, storeStatus(err, http.StatusInternalServerError), err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteGrid(&buf, view.Grid, view.Projects); err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	filename := fmt.Sprintf("capacity-%s-%dw.xlsx", q.from, q.weeks)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
