package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/xai-decision-backend/internal/platform/ctxutil"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

// RequestLogger writes one access line per request. Liveness probes log at
// debug; 4xx at warn; 5xx at error with the last handler error attached.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		kv := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			kv = append(kv, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		if id := c.Param("id"); id != "" {
			kv = append(kv, "application_id", id)
		}
		if reviewer := ctxutil.Reviewer(c.Request.Context()); reviewer != "" {
			kv = append(kv, "reviewer", reviewer)
		}
		if last := c.Errors.Last(); last != nil {
			kv = append(kv, "error", last.Error())
		}

		switch {
		case status >= 500:
			log.Error("http request", kv...)
		case status >= 400:
			log.Warn("http request", kv...)
		case route == "/healthcheck" || route == "/health":
			log.Debug("http request", kv...)
		default:
			log.Info("http request", kv...)
		}
	}
}
