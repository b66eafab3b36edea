package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joblens/joblens/internal/models"
	"github.com/joblens/joblens/internal/services"
	"github.com/joblens/joblens/internal/utils"
)

type stubMatchService struct {
	gotUserID string
	gotReq    services.MatchRequest
	scores    []models.MatchScore
	err       error
}

func (s *stubMatchService) FindMatches(_ context.Context, userID string, req services.MatchRequest) ([]models.MatchScore, error) {
	s.gotUserID = userID
	s.gotReq = req
	return s.scores, s.err
}

type stubHistoryService struct {
	got services.RecordInteractionInput
	err error
}

func (s *stubHistoryService) Upsert(context.Context, models.MatchScore, int) error { return nil }
func (s *stubHistoryService) UpsertBatch(context.Context, []models.MatchScore)     {}
func (s *stubHistoryService) RecordInteraction(_ context.Context, in services.RecordInteractionInput) error {
	s.got = in
	return s.err
}

func performJSON(t *testing.T, h gin.HandlerFunc, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
	c.Request.Header.Set("Content-Type", "application/json")
	if userID != "" {
		c.Set("user_id", userID)
	}
	h(c)
	return w
}

func TestMatchHandlerFind_OK(t *testing.T) {
	svc := &stubMatchService{scores: []models.MatchScore{
		{UserID: "u1", JobID: "j1", Composite: 82.5, Algorithm: models.AlgorithmHybrid},
	}}
	h := NewMatchHandler(svc)

	w := performJSON(t, h.Find, "u1", map[string]any{
		"algorithm": "hybrid",
		"limit":     10,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", svc.gotUserID)
	assert.Equal(t, models.AlgorithmHybrid, svc.gotReq.Algorithm)
	assert.Equal(t, 10, svc.gotReq.Limit)

	var resp struct {
		Matches []MatchResult `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "j1", resp.Matches[0].JobID)
	assert.Equal(t, 82.5, resp.Matches[0].CompositeScore)
}

func TestMatchHandlerFind_RequiresAuth(t *testing.T) {
	h := NewMatchHandler(&stubMatchService{})
	w := performJSON(t, h.Find, "", map[string]any{"limit": 10})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMatchHandlerFind_RejectsMissingLimit(t *testing.T) {
	h := NewMatchHandler(&stubMatchService{})
	w := performJSON(t, h.Find, "u1", map[string]any{"algorithm": "hybrid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMatchHandlerFind_MapsServiceError(t *testing.T) {
	svc := &stubMatchService{err: utils.E(utils.CodeInvalidArgument, "op", "unknown algorithm", nil)}
	h := NewMatchHandler(svc)

	w := performJSON(t, h.Find, "u1", map[string]any{"algorithm": "ml", "limit": 10})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, utils.CodeInvalidArgument, apiErr.Code)
	assert.Equal(t, "unknown algorithm", apiErr.Message)
}

func TestInteractionHandlerRecord_OK(t *testing.T) {
	svc := &stubHistoryService{}
	h := NewInteractionHandler(svc)

	w := performJSON(t, h.Record, "u1", map[string]any{
		"job_id":           "j1",
		"type":             "apply",
		"duration_seconds": 42.0,
		"feedback_reason":  "good_fit",
		"skills":           []string{"go"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", svc.got.UserID)
	assert.Equal(t, "j1", svc.got.JobID)
	assert.Equal(t, models.InteractionApply, svc.got.Type)
	assert.Equal(t, 42.0, svc.got.Duration)
	assert.Equal(t, "good_fit", svc.got.Feedback, "feedback_reason is accepted as an alias")
	assert.Equal(t, []string{"go"}, svc.got.Skills)
}

func TestInteractionHandlerRecord_RejectsMissingFields(t *testing.T) {
	h := NewInteractionHandler(&stubHistoryService{})
	w := performJSON(t, h.Record, "u1", map[string]any{"type": "view"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
