package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/joblens/joblens/internal/models"
	"github.com/joblens/joblens/internal/services"
	"github.com/joblens/joblens/internal/utils"
)

type ProfileHandler struct {
	svc services.ProfileService
}

func NewProfileHandler(svc services.ProfileService) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

func (h *ProfileHandler) Me(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	p, err := h.svc.GetMe(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

type UpdateProfileRequest struct {
	HomeRegion       *string  `json:"home_region,omitempty"`
	MacroRegion      *string  `json:"macro_region,omitempty"`
	DesiredSalaryMin *float64 `json:"desired_salary_min,omitempty"`
	DesiredSalaryMax *float64 `json:"desired_salary_max,omitempty"`

	// JSONB maps (raw), feature/category -> weight in [0,1]
	Preferences       *json.RawMessage `json:"preferences,omitempty"`
	CategoryInterests *json.RawMessage `json:"category_interests,omitempty"`
}

func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ProfileHandler.Update", "invalid request body", err))
		return
	}

	// Load existing (if not found => create new)
	var existing *models.UserProfile
	existing, err := h.svc.GetMe(c.Request.Context(), userID)
	if err != nil {
		if utils.IsCode(err, utils.CodeNotFound) {
			existing = &models.UserProfile{UserID: userID}
		} else {
			writeError(c, err)
			return
		}
	}

	// Apply partial updates
	if req.HomeRegion != nil {
		existing.HomeRegion = *req.HomeRegion
	}
	if req.MacroRegion != nil {
		existing.MacroRegion = *req.MacroRegion
	}
	if req.DesiredSalaryMin != nil {
		existing.DesiredSalaryMin = *req.DesiredSalaryMin
	}
	if req.DesiredSalaryMax != nil {
		existing.DesiredSalaryMax = *req.DesiredSalaryMax
	}
	if req.Preferences != nil {
		existing.Preferences = datatypes.JSON(*req.Preferences)
	}
	if req.CategoryInterests != nil {
		existing.CategoryInterests = datatypes.JSON(*req.CategoryInterests)
	}

	existing.UpdatedAt = time.Now().UTC()

	if err := h.svc.Upsert(c.Request.Context(), existing); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, existing)
}
