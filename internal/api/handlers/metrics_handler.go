package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/joblens/joblens/internal/services"
	"github.com/joblens/joblens/internal/utils"
)

type MetricsHandler struct {
	svc services.MetricsService
}

func NewMetricsHandler(svc services.MetricsService) *MetricsHandler {
	return &MetricsHandler{svc: svc}
}

func (h *MetricsHandler) UserMetrics(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	days := 30
	if raw := c.Query("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(c, utils.E(utils.CodeInvalidArgument, "MetricsHandler.UserMetrics", "days must be a positive integer", err))
			return
		}
		days = v
	}

	m, err := h.svc.UserMetrics(c.Request.Context(), userID, days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
