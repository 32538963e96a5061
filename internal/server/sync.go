package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var errSyncDisabled = errors.New("time tracker sync is not configured")

// handleSync mirrors people and projects from the time tracker.
func (s *Server) handleSync(c *gin.Context) {
	if s.opts.Syncer == nil {
		s.respondError(c, http.StatusServiceUnavailable, errSyncDisabled)
		return
	}
	report, err := s.opts.Syncer.Run(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusBadGateway, err)
		return
	}
	s.changed(c)
	respondSuccess(c, http.StatusOK, gin.H{"report": report})
}
