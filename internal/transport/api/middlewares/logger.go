package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger пишет в лог каждый запрос. Запросы, завершившиеся ошибкой сервера, логируются с уровнем Error
// вместе с приватными ошибками из c.Errors.
func Logger(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		entry := l.WithFields(logrus.Fields{
			"status":   status,
			"method":   c.Request.Method,
			"path":     path,
			"ip":       c.ClientIP(),
			"latency":  time.Since(start).String(),
			"size":     c.Writer.Size(),
			"reqAgent": c.Request.UserAgent(),
		})
		if caller, ok := CallerFromContext(c); ok {
			entry = entry.WithField("user_id", caller.UserID)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500: //nolint:mnd
			entry.Error("request failed")
		case status >= 400: //nolint:mnd
			entry.Info("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}
