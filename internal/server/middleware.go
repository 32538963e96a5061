package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	apiKeyHeader    = "X-API-Key"
)

// requestID tags every request with an id, reusing the caller's when sent.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// apiKey rejects calls without the configured key. With no key configured
// the API is open.
func (s *Server) apiKey() gin.HandlerFunc {
	want := []byte(s.opts.APIKey)
	if len(want) == 0 {
		s.logger.Warn("api key not configured; API routes are unprotected")
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(apiKeyHeader))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			s.logger.Warn("unauthorized request",
				"path", c.Request.URL.Path,
				"request_id", c.GetString(requestIDKey),
				"key_present", len(got) > 0)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
