package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/joblens/joblens/internal/cache"
	"github.com/joblens/joblens/internal/models"
	mongorepo "github.com/joblens/joblens/internal/repositories/mongo"
	pgrepo "github.com/joblens/joblens/internal/repositories/postgres"
	"github.com/joblens/joblens/internal/utils"
)

// HistoryService records scored results and user interactions for future
// training. Persistence failures never propagate to the matching caller.
type HistoryService interface {
	Upsert(ctx context.Context, score models.MatchScore, rank int) error
	UpsertBatch(ctx context.Context, scores []models.MatchScore)
	RecordInteraction(ctx context.Context, in RecordInteractionInput) error
}

type RecordInteractionInput struct {
	UserID   string
	JobID    string
	Type     models.InteractionType
	Duration float64
	Feedback string

	// Tags extracted at interaction time, optional.
	Skills          []string
	ExperienceLevel models.ExperienceLevel
	Region          string
	SalaryLevel     string
}

type historyService struct {
	histories    pgrepo.HistoryRepository
	interactions mongorepo.InteractionRepository
	cache        cache.Cache
	log          *logrus.Logger

	locks sync.Map // per (user,job) serialization of flag cascades

	maxRetries int
	baseDelay  time.Duration
}

func NewHistoryService(histories pgrepo.HistoryRepository, interactions mongorepo.InteractionRepository, c cache.Cache, log *logrus.Logger) HistoryService {
	if log == nil {
		log = logrus.New()
	}
	return &historyService{
		histories:    histories,
		interactions: interactions,
		cache:        c,
		log:          log,
		maxRetries:   3,
		baseDelay:    100 * time.Millisecond,
	}
}

func (s *historyService) Upsert(ctx context.Context, score models.MatchScore, rank int) error {
	const op = "HistoryService.Upsert"

	if score.UserID == "" || score.JobID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id and job_id are required", nil)
	}

	breakdown, _ := json.Marshal(map[string]any{
		"scores":    score.Scores,
		"bonuses":   score.Bonuses,
		"penalties": score.Penalties,
	})
	row := &models.MatchHistory{
		UserID:    score.UserID,
		JobID:     score.JobID,
		Score:     score.Composite,
		Algorithm: score.Algorithm,
		Rank:      rank,
		Breakdown: datatypes.JSON(breakdown),
	}

	if err := s.withRetry(ctx, func() error { return s.histories.Upsert(ctx, row) }); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to upsert match history", err)
	}
	return nil
}

// UpsertBatch persists a returned result set. Failures are logged per row
// and swallowed: a user-visible match result must not depend on history.
func (s *historyService) UpsertBatch(ctx context.Context, scores []models.MatchScore) {
	for i, sc := range scores {
		if err := s.Upsert(ctx, sc, i+1); err != nil {
			s.log.WithFields(logrus.Fields{
				"component": "history_service",
				"user_id":   sc.UserID,
				"job_id":    sc.JobID,
			}).WithError(err).Warn("match history upsert failed")
		}
	}
}

func (s *historyService) RecordInteraction(ctx context.Context, in RecordInteractionInput) error {
	const op = "HistoryService.RecordInteraction"

	if in.UserID == "" || in.JobID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id and job_id are required", nil)
	}
	switch in.Type {
	case models.InteractionView, models.InteractionClick, models.InteractionSave,
		models.InteractionApply, models.InteractionSearch, models.InteractionHidden,
		models.InteractionFavorited:
	default:
		return utils.E(utils.CodeInvalidArgument, op, "unknown interaction type", nil)
	}

	// In-process serialization per (user, job); the repository adds a row
	// lock so cascades cannot race across processes either.
	key := in.UserID + "|" + in.JobID
	muAny, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	now := time.Now().UTC()
	if err := s.withRetry(ctx, func() error {
		return s.histories.ApplyInteraction(ctx, in.UserID, in.JobID, in.Type, now, in.Feedback)
	}); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to record interaction", err)
	}

	// Append-only event for future training; failure is logged, the flag
	// update above already stuck.
	ev := &models.InteractionEvent{
		UserID:          in.UserID,
		JobID:           in.JobID,
		Type:            in.Type,
		Duration:        in.Duration,
		Timestamp:       now,
		Skills:          in.Skills,
		ExperienceLevel: in.ExperienceLevel,
		Region:          in.Region,
		SalaryLevel:     in.SalaryLevel,
	}
	if err := s.interactions.Append(ctx, ev); err != nil {
		s.log.WithFields(logrus.Fields{
			"component": "history_service",
			"user_id":   in.UserID,
			"job_id":    in.JobID,
		}).WithError(err).Warn("interaction event append failed")
	}

	if s.cache != nil {
		if err := s.cache.DelPrefix(ctx, cache.MatchPrefix(in.UserID)); err != nil {
			s.log.WithField("user_id", in.UserID).WithError(err).Debug("match cache invalidation failed")
		}
	}
	return nil
}

// withRetry runs fn with bounded exponential backoff.
func (s *historyService) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delay := s.baseDelay
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
