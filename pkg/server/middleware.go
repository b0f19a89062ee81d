package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/log"
)

const (
	requestIDHeader = "X-Request-ID"
	ctxRequestID    = "request_id"
	ctxToken        = "session_token"
	ctxLogger       = "logger"
)

// requestID tags each request with an ID and a logger carrying it
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Set(ctxLogger, s.logger.WithField("req", id[:min(8, len(id))]))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// accessLog logs one line per request, with the body only in debug mode
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger := requestLogger(c, s.logger)
		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, time.Since(start).Round(time.Millisecond))
		case status >= http.StatusBadRequest:
			logger.Warning("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, time.Since(start).Round(time.Millisecond))
		default:
			logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, time.Since(start).Round(time.Millisecond))
		}
	}
}

// session loads the access token from the session cookie. When required is
// set, requests without one are rejected with 401.
func (s *Server) session(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(s.cfg.CookieName)
		if err != nil || token == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No access token"})
				return
			}
			c.Next()
			return
		}
		c.Set(ctxToken, token)
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	return c.GetString(ctxToken)
}

func requestLogger(c *gin.Context, fallback *log.Logger) *log.Logger {
	if v, ok := c.Get(ctxLogger); ok {
		if l, ok := v.(*log.Logger); ok {
			return l
		}
	}
	return fallback
}
