package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
)

type HTTPMetrics interface {
	ObserveHTTP(method, path string, status int, d time.Duration)
}

// Metrics считает запросы и их длительность. Метка path берется из шаблона роута, а не из URL,
// чтобы id в пути не раздували кардинальность.
func Metrics(m HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
