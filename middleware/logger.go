package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestLogger tags each request with an id and writes an access log
// line once it has been served.
func RequestLogger(logger *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		l := logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start),
			"client_ip":  c.ClientIP(),
		})
		if id, ok := c.Get(AccountIDKey); ok {
			l = l.WithField("account_id", id)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			l.Error("Request failed")
		case status >= 400:
			l.Info("Request rejected")
		default:
			l.Info("Request served")
		}
	}
}

// RequestLogEntry returns logger tagged with the id of the current request.
func RequestLogEntry(c *gin.Context, logger *logrus.Entry) *logrus.Entry {
	return logger.WithField("request_id", c.GetString(requestIDKey))
}

// NoCache keeps browsers and proxies from caching any response.
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Header("Expires", "0")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
