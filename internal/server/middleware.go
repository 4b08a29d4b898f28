package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HeaderRequestID is the request correlation header, echoed on responses.
const HeaderRequestID = "X-Request-ID"

// contextKeyRequestID keys the request ID in gin's per-request store.
const contextKeyRequestID = "request_id"

// RequestID attaches a unique ID to every request. An inbound X-Request-ID
// is honored so callers can correlate across services; otherwise a fresh
// UUID is generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextKeyRequestID, id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger installs a request-scoped logger on the request context and
// emits one line per request with method, path, status and duration.
// Handlers and everything below them pick the logger up through
// logging.FromContext.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqLogger := logger.With().
			Str("request_id", c.GetString(contextKeyRequestID)).
			Logger()
		c.Request = c.Request.WithContext(reqLogger.WithContext(c.Request.Context()))

		c.Next()

		reqLogger.Info().
			Str("component", "server").
			Str("operation", "request").
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("request handled")
	}
}
