package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handlers) HealthCheck(c *gin.Context) {
	log.Debug("Health check endpoint hit")

	database := "ok"
	status := http.StatusOK
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			log.Errorf("HealthCheck: database ping failed: %v", err)
			database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, gin.H{
		"status":   http.StatusText(status),
		"message":  "VidFold API is running",
		"database": database,
	})
}
