package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	pgrepo "github.com/joblens/joblens/internal/repositories/postgres"
	"github.com/joblens/joblens/internal/utils"
)

// UserMetrics summarizes one user's matching engagement over a period.
type UserMetrics struct {
	UserID            string             `json:"user_id"`
	Days              int                `json:"days"`
	TotalMatches      int                `json:"total_matches"`
	InteractionCounts map[string]int     `json:"interaction_counts"`
	Rates             map[string]float64 `json:"rates"`
	FeedbackSummary   map[string]int     `json:"feedback_summary"`
	AvgMatchScore     float64            `json:"avg_match_score"`
}

type MetricsService interface {
	UserMetrics(ctx context.Context, userID string, days int) (*UserMetrics, error)
}

type metricsService struct {
	histories pgrepo.HistoryRepository
	log       *logrus.Logger
}

func NewMetricsService(histories pgrepo.HistoryRepository, log *logrus.Logger) MetricsService {
	if log == nil {
		log = logrus.New()
	}
	return &metricsService{histories: histories, log: log}
}

func (s *metricsService) UserMetrics(ctx context.Context, userID string, days int) (*UserMetrics, error) {
	const op = "MetricsService.UserMetrics"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if days <= 0 {
		days = 30
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.histories.ListByUserSince(ctx, userID, since)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to load match history", err)
	}

	m := &UserMetrics{
		UserID:            userID,
		Days:              days,
		TotalMatches:      len(rows),
		InteractionCounts: map[string]int{"view": 0, "click": 0, "application": 0, "favorite": 0, "hidden": 0},
		Rates:             map[string]float64{},
		FeedbackSummary:   map[string]int{},
	}

	scoreSum := 0.0
	for _, h := range rows {
		scoreSum += h.Score
		if h.ViewedAt != nil {
			m.InteractionCounts["view"]++
		}
		if h.ClickedAt != nil {
			m.InteractionCounts["click"]++
		}
		if h.AppliedAt != nil {
			m.InteractionCounts["application"]++
		}
		if h.FavoritedAt != nil {
			m.InteractionCounts["favorite"]++
		}
		if h.HiddenAt != nil {
			m.InteractionCounts["hidden"]++
		}
		if h.Feedback != "" {
			m.FeedbackSummary[h.Feedback]++
		}
	}

	if len(rows) > 0 {
		total := float64(len(rows))
		m.AvgMatchScore = scoreSum / total
		for _, k := range []string{"view", "click", "application", "favorite"} {
			m.Rates[k] = float64(m.InteractionCounts[k]) / total
		}
	}
	return m, nil
}
