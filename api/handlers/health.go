package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mailvault/mailvault/interfaces"
)

// HealthCheck provides a simple health check endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// QuotaStatus returns the monitor's last computed quota state
func QuotaStatus(quotaMonitor interfaces.QuotaMonitorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := quotaMonitor.CurrentState()
		c.JSON(http.StatusOK, gin.H{
			"state": state,
		})
	}
}
