package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health is the public liveness probe. It must not expose tenant data.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
