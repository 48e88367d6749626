package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-salesforce-connector/adapters/gologger"
	"github.com/goliatone/go-salesforce-connector/core"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

// RequireAdmin gates the administrator capability: a bearer token equal to
// the configured admin token. With no token configured every request is
// refused.
func (h *Handler) RequireAdmin(c *gin.Context) {
	if h.adminToken == "" {
		c.AbortWithStatusJSON(http.StatusForbidden, errorBody(core.ErrorPermissionDenied, "administrator access is not configured"))
		return
	}
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(core.ErrorPermissionDenied, "bearer token required"))
		return
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), []byte(h.adminToken)) != 1 {
		c.AbortWithStatusJSON(http.StatusForbidden, errorBody(core.ErrorPermissionDenied, "administrator access required"))
		return
	}
	c.Next()
}

// RequestLogger logs method, path, status and latency per request. The
// query string is omitted since the callback carries the authorization code.
func RequestLogger(logger core.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		status := c.Writer.Status()
		fields := map[string]any{
			"request_id": requestID,
			"status":     status,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"latency_ms": time.Since(start).Milliseconds(),
		}
		entry := gologger.WithFields(logger.WithContext(c.Request.Context()), fields)
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("http request")
		case status >= http.StatusBadRequest:
			entry.Warn("http request")
		default:
			entry.Info("http request")
		}
	}
}
