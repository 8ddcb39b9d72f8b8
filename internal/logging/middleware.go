package logging

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// RequestIDHeader carries the request id in and out.
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	loggerKey       = "logger"
)

// RequestLogger tags each request with an id, stores a request-scoped logger
// in the gin context and logs the completed request.
func RequestLogger(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(RequestIDHeader, requestID)

		reqLogger := base.With().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Logger()
		c.Set(requestIDKey, requestID)
		c.Set(loggerKey, reqLogger)
		c.Request = c.Request.WithContext(reqLogger.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		event := reqLogger.Info()
		if status >= http.StatusInternalServerError {
			event = reqLogger.Error()
		} else if status >= http.StatusBadRequest {
			event = reqLogger.Warn()
		}

		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			event = event.Str("errors", errs.String())
		}

		event.
			Int("status_code", status).
			Str("client_ip", c.ClientIP()).
			Dur("duration_ms", time.Since(start)).
			Msg("HTTP request completed")
	}
}

// Recovery turns panics into a 500 and logs them.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				FromContext(c).Error().
					Str("panic", fmt.Sprint(rec)).
					Msg("Recovered from panic")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   http.StatusText(http.StatusInternalServerError),
					"message": "Unexpected server error.",
				})
			}
		}()
		c.Next()
	}
}

// FromContext returns the request-scoped logger, or the global logger when
// RequestLogger did not run.
func FromContext(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if logger, ok := v.(zerolog.Logger); ok {
			return &logger
		}
	}
	return zerolog.Ctx(c.Request.Context())
}

// RequestID returns the id assigned by RequestLogger.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
