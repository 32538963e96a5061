package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"resourcecal/internal/admission"
	"resourcecal/internal/cache"
	"resourcecal/internal/calendar"
	"resourcecal/internal/models"
	"resourcecal/internal/storage"
	"resourcecal/internal/timetracker"
)

// Store is what the handlers need from a database. Both the SQLite and the
// PostgreSQL stores satisfy it.
type Store interface {
	Ping(ctx context.Context) error

	ListPeople(ctx context.Context, includeDisabled bool) ([]models.Person, error)
	GetPerson(ctx context.Context, id int64) (models.Person, error)
	CreatePerson(ctx context.Context, p models.Person) (models.Person, error)
	UpdatePerson(ctx context.Context, p models.Person) (models.Person, error)
	DeletePerson(ctx context.Context, id int64) error

	ListProjects(ctx context.Context, includeHidden bool) ([]models.Project, error)
	GetProject(ctx context.Context, id int64) (models.Project, error)
	CreateProject(ctx context.Context, p models.Project) (models.Project, error)
	UpdateProject(ctx context.Context, p models.Project) (models.Project, error)
	DeleteProject(ctx context.Context, id int64) error

	ListAssignments(ctx context.Context, q storage.AssignmentQuery) ([]models.Assignment, error)
	GetAssignment(ctx context.Context, id int64) (models.Assignment, error)

	ListFilters(ctx context.Context) ([]models.Filter, error)
	GetFilter(ctx context.Context, id string) (models.Filter, error)
	CreateFilter(ctx context.Context, f models.Filter) (models.Filter, error)
	DeleteFilter(ctx context.Context, id string) error
}

// Options carries the optional collaborators of the server.
type Options struct {
	StaticDir string
	// APIKey, when set, is required in the X-API-Key header of every API call.
	APIKey string
	Cache  *cache.GridCache
	// Syncer is nil when no time tracker is configured.
	Syncer   *timetracker.Syncer
	Location *time.Location
}

// Server provides HTTP handlers for the capacity planner.
type Server struct {
	engine  *gin.Engine
	store   Store
	planner *admission.Controller
	logger  *slog.Logger
	opts    Options
}

// New constructs the HTTP server with routes and middleware configured.
func New(store Store, planner *admission.Controller, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(nil, 0, logger)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))

	srv := &Server{
		engine:  router,
		store:   store,
		planner: planner,
		logger:  logger,
		opts:    opts,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/api/healthz", s.handleHealth)

	api := s.engine.Group("/api")
	api.Use(s.apiKey())
	{
		people := api.Group("/people")
		{
			people.GET("", s.handleListPeople)
			people.POST("", s.handleCreatePerson)
			people.PUT(":id", s.handleUpdatePerson)
			people.DELETE(":id", s.handleDeletePerson)
			people.GET(":id/capacity", s.handlePersonCapacity)
		}

		projects := api.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.PUT(":id", s.handleUpdateProject)
			projects.DELETE(":id", s.handleDeleteProject)
		}

		assignments := api.Group("/assignments")
		{
			assignments.GET("", s.handleListAssignments)
			assignments.POST("", s.handleAdmitAssignment)
			assignments.PUT(":id", s.handleUpdateAssignment)
			assignments.DELETE(":id", s.handleDeleteAssignment)
			assignments.POST(":id/remove-week", s.handleRemoveWeek)
			assignments.POST(":id/week-percentage", s.handleSetWeekPercentage)
		}

		api.GET("/grid", s.handleGrid)
		api.GET("/grid/export.xlsx", s.handleGridExport)

		filters := api.Group("/filters")
		{
			filters.GET("", s.handleListFilters)
			filters.POST("", s.handleCreateFilter)
			filters.DELETE(":id", s.handleDeleteFilter)
		}

		api.POST("/sync", s.handleSync)
	}

	s.mountStatic()
}

// handleHealth reports whether the database answers.
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.respondError(c, http.StatusServiceUnavailable, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, admission.ErrDuplicateProjectInWeek):
		return http.StatusConflict
	case errors.Is(err, admission.ErrCapacityExceeded), errors.Is(err, calendar.ErrIterationLimit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, admission.ErrValidation), errors.Is(err, models.ErrInvalid), errors.Is(err, calendar.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	attrs := []any{
		slog.String("path", c.FullPath()),
		slog.String("request_id", c.GetString(requestIDKey)),
		slog.String("error", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
	} else {
		s.logger.Warn("request refused", attrs...)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondFailure picks the status from err. Rejections carry their details.
func (s *Server) respondFailure(c *gin.Context, err error) {
	var rej *admission.Rejection
	if errors.As(err, &rej) {
		status := statusFor(err)
		s.logger.Warn("request rejected",
			slog.String("path", c.FullPath()),
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": err.Error(), "rejection": rej})
		return
	}
	s.respondError(c, statusFor(err), err)
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

// changed retires cached grids after a write.
func (s *Server) changed(c *gin.Context) {
	s.opts.Cache.Invalidate(c.Request.Context())
}

func (s *Server) today() calendar.Day {
	return calendar.Today(s.opts.Location)
}

// storeStatus keeps fallback for store errors other than a missing row.
func storeStatus(err error, fallback int) int {
	if errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	return fallback
}
