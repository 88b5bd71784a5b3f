package handlers

import (
	"net/http"

	"facesplit/internal/utils"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// GetStatus liefert Systemstatistiken und, falls aktiv, den Inhalt des Stores
func (h *APIHandler) GetStatus(c *gin.Context) {
	resp := gin.H{
		"status": "ok",
		"system": utils.GetSystemStats(h.pool),
		"store":  h.repo != nil,
	}

	if h.repo != nil {
		stats, err := h.repo.GetStatistics()
		if err != nil {
			log.Errorf("Failed to load store statistics: %v", err)
		} else {
			resp["statistics"] = stats
		}
	}

	c.JSON(http.StatusOK, resp)
}
