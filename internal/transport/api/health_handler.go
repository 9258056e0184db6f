package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = time.Second

type HealthHandler struct {
	checker HealthChecker
}

func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Show GET HealthRoute. 503, если база не отвечает.
func (h *HealthHandler) Show(c *gin.Context) {
	if h.checker != nil {
		reqCtx, cancel := context.WithTimeout(c, healthCheckTimeout)
		defer cancel()

		if err := h.checker.Ping(reqCtx); err != nil {
			_ = c.Error(err).SetType(gin.ErrorTypePrivate)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
