package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joblens/joblens/internal/services"
)

type AdminHandler struct {
	trainer services.TrainingService
}

func NewAdminHandler(trainer services.TrainingService) *AdminHandler {
	return &AdminHandler{trainer: trainer}
}

// Retrain triggers an immediate model retrain outside the cron schedule.
func (h *AdminHandler) Retrain(c *gin.Context) {
	if err := h.trainer.Retrain(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   h.trainer.Model().State().String(),
	})
}
