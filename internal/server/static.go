package server

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// clientRoutes are frontend pages served from index.html.
var clientRoutes = []string{"/", "/view-only", "/admin"}

// mountStatic serves the compiled planner frontend from the configured
// directory. Unknown non-API paths fall back to index.html.
func (s *Server) mountStatic() {
	dir := s.opts.StaticDir
	if dir == "" {
		s.logger.Warn("static directory not configured; API only mode")
		return
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing", slog.String("path", dir), slog.Any("error", err))
		return
	}

	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		s.logger.Warn("index.html not found", slog.String("path", index), slog.String("error", err.Error()))
	} else {
		serveIndex := func(c *gin.Context) { c.File(index) }
		for _, route := range clientRoutes {
			s.engine.GET(route, serveIndex)
		}
		s.engine.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
				return
			}
			serveIndex(c)
		})
	}

	for _, sub := range []string{"assets", "_next"} {
		path := filepath.Join(dir, sub)
		if _, err := os.Stat(path); err == nil {
			s.engine.StaticFS("/"+sub, gin.Dir(path, false))
		}
	}

	favicon := filepath.Join(dir, "favicon.ico")
	if _, err := os.Stat(favicon); err == nil {
		s.engine.StaticFile("/favicon.ico", favicon)
	}
}
