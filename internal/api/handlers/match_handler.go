package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joblens/joblens/internal/models"
	"github.com/joblens/joblens/internal/services"
	"github.com/joblens/joblens/internal/utils"
)

type MatchHandler struct {
	svc services.MatchService
}

func NewMatchHandler(svc services.MatchService) *MatchHandler {
	return &MatchHandler{svc: svc}
}

type MatchRequestBody struct {
	Algorithm string           `json:"algorithm,omitempty"`
	Filters   services.Filters `json:"filters"`
	SortOrder string           `json:"sort_order,omitempty"`
	Limit     int              `json:"limit" binding:"required,gt=0"`
}

type MatchResult struct {
	JobID          string             `json:"job_id"`
	CompositeScore float64            `json:"composite_score"`
	ScoreBreakdown models.SubScores   `json:"score_breakdown"`
	Bonuses        map[string]float64 `json:"bonuses,omitempty"`
	Penalties      map[string]float64 `json:"penalties,omitempty"`
	Algorithm      models.Algorithm   `json:"algorithm"`
}

func (h *MatchHandler) Find(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var body MatchRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "MatchHandler.Find", "invalid request body", err))
		return
	}

	scores, err := h.svc.FindMatches(c.Request.Context(), userID, services.MatchRequest{
		Algorithm: models.Algorithm(body.Algorithm),
		Filters:   body.Filters,
		SortOrder: services.SortOrder(body.SortOrder),
		Limit:     body.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]MatchResult, 0, len(scores))
	for _, s := range scores {
		out = append(out, MatchResult{
			JobID:          s.JobID,
			CompositeScore: s.Composite,
			ScoreBreakdown: s.Scores,
			Bonuses:        s.Bonuses,
			Penalties:      s.Penalties,
			Algorithm:      s.Algorithm,
		})
	}
	c.JSON(http.StatusOK, gin.H{"matches": out})
}
