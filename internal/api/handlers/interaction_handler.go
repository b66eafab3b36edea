package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joblens/joblens/internal/models"
	"github.com/joblens/joblens/internal/services"
	"github.com/joblens/joblens/internal/utils"
)

type InteractionHandler struct {
	svc services.HistoryService
}

func NewInteractionHandler(svc services.HistoryService) *InteractionHandler {
	return &InteractionHandler{svc: svc}
}

type InteractionRequestBody struct {
	JobID           string   `json:"job_id" binding:"required"`
	Type            string   `json:"type" binding:"required"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
	Feedback        string   `json:"feedback,omitempty"`
	FeedbackReason  string   `json:"feedback_reason,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	ExperienceLevel string   `json:"experience_level,omitempty"`
	Region          string   `json:"region,omitempty"`
	SalaryLevel     string   `json:"salary_level,omitempty"`
}

func (h *InteractionHandler) Record(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var body InteractionRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InteractionHandler.Record", "invalid request body", err))
		return
	}

	feedback := body.Feedback
	if feedback == "" {
		feedback = body.FeedbackReason
	}

	err := h.svc.RecordInteraction(c.Request.Context(), services.RecordInteractionInput{
		UserID:          userID,
		JobID:           body.JobID,
		Type:            models.InteractionType(body.Type),
		Duration:        body.DurationSeconds,
		Feedback:        feedback,
		Skills:          body.Skills,
		ExperienceLevel: models.ExperienceLevel(body.ExperienceLevel),
		Region:          body.Region,
		SalaryLevel:     body.SalaryLevel,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
