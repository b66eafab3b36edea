package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joblens/joblens/internal/matching"
	mongorepo "github.com/joblens/joblens/internal/repositories/mongo"
	pgrepo "github.com/joblens/joblens/internal/repositories/postgres"
	"github.com/joblens/joblens/internal/utils"
)

// TrainingService is the single writer of model snapshots. Readers obtain
// snapshots through the shared matching.Model and never block on training.
type TrainingService interface {
	// Retrain fits a fresh snapshot on windowed interaction history and
	// writes user factors back to profiles.
	Retrain(ctx context.Context) error

	// EnsureTrained lazily fits the first snapshot from the given records if
	// the model has never been trained. Subsequent calls are cheap no-ops.
	EnsureTrained(ctx context.Context, records []matching.AnalyzedRecord)

	Model() *matching.Model
}

type trainingService struct {
	interactions mongorepo.InteractionRepository
	profiles     pgrepo.ProfileRepository
	analyzer     *matching.BehaviorAnalyzer
	model        *matching.Model
	cfg          matching.Config
	log          *logrus.Logger

	mu sync.Mutex // single-writer retraining
}

func NewTrainingService(
	interactions mongorepo.InteractionRepository,
	profiles pgrepo.ProfileRepository,
	analyzer *matching.BehaviorAnalyzer,
	model *matching.Model,
	cfg matching.Config,
	log *logrus.Logger,
) TrainingService {
	if log == nil {
		log = logrus.New()
	}
	return &trainingService{
		interactions: interactions,
		profiles:     profiles,
		analyzer:     analyzer,
		model:        model,
		cfg:          cfg,
		log:          log,
	}
}

func (s *trainingService) Model() *matching.Model { return s.model }

func (s *trainingService) Retrain(ctx context.Context) error {
	const op = "TrainingService.Retrain"

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	ref := time.Now().UTC()
	since := ref.AddDate(0, 0, -s.cfg.WindowDays)

	events, err := s.interactions.ListSince(ctx, since, int64(s.cfg.MaxRecords)*50)
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to load interaction window", err)
	}

	records := s.analyzer.Analyze(events, s.cfg.WindowDays, ref)
	triples := matching.BuildTriples(records)
	if len(triples) == 0 {
		s.log.WithField("component", "training_service").Info("no interactions in window, keeping previous snapshot")
		return nil
	}

	snap := s.model.Train(triples)
	if snap == nil {
		return nil
	}

	persisted := 0
	for _, userID := range snap.UserIDs() {
		factors, ok := snap.UserFactors(userID)
		if !ok {
			continue
		}
		vec := make([]float32, len(factors))
		argmax := 0
		for i, f := range factors {
			vec[i] = float32(f)
			if f > factors[argmax] {
				argmax = i
			}
		}
		label := fmt.Sprintf("c%02d", argmax)
		if err := s.profiles.UpdateLatentFactors(ctx, userID, vec, label); err != nil {
			s.log.WithFields(logrus.Fields{
				"component": "training_service",
				"user_id":   userID,
			}).WithError(err).Warn("latent factor writeback failed")
			continue
		}
		persisted++
	}

	s.log.WithFields(logrus.Fields{
		"component":  "training_service",
		"version":    snap.Version(),
		"events":     len(events),
		"triples":    len(triples),
		"profiles":   persisted,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("model retrained")
	return nil
}

func (s *trainingService) EnsureTrained(ctx context.Context, records []matching.AnalyzedRecord) {
	if s.model.State() != matching.StateUntrained {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model.State() != matching.StateUntrained {
		return
	}
	triples := matching.BuildTriples(records)
	if len(triples) == 0 {
		return
	}
	s.model.Train(triples)
	s.log.WithFields(logrus.Fields{
		"component": "training_service",
		"triples":   len(triples),
	}).Info("model trained lazily on first qualifying call")
}
