package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Config controls logger initialization.
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json" or "console"
	Output io.Writer
}

// New builds a zerolog logger from cfg. Unknown levels fall back to info.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// GinMiddleware logs one line per request and tags it with a request id,
// reusing the caller's X-Request-ID when present.
func GinMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(RequestIDHeader, reqID)

		c.Next()

		status := c.Writer.Status()
		evt := logger.Info()
		switch {
		case status >= 500:
			evt = logger.Error()
		case status >= 400:
			evt = logger.Warn()
		}
		if len(c.Errors) > 0 {
			evt = evt.Str("errors", c.Errors.String())
		}
		evt.Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
