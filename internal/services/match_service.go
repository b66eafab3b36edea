package services

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/joblens/joblens/internal/cache"
	"github.com/joblens/joblens/internal/matching"
	"github.com/joblens/joblens/internal/models"
	mongorepo "github.com/joblens/joblens/internal/repositories/mongo"
	pgrepo "github.com/joblens/joblens/internal/repositories/postgres"
	"github.com/joblens/joblens/internal/utils"
)

const matchCacheTTL = 2 * time.Minute

// Filters are exact-match and range predicates applied after scoring.
type Filters struct {
	MinScore         *float64 `json:"min_score,omitempty"`
	MaxScore         *float64 `json:"max_score,omitempty"`
	Categories       []string `json:"categories,omitempty"`
	Locations        []string `json:"locations,omitempty"`
	SalaryMin        *float64 `json:"salary_min,omitempty"`
	SalaryMax        *float64 `json:"salary_max,omitempty"`
	ExperienceLevels []string `json:"experience_levels,omitempty"`

	// ExcludeApplied defaults to true when absent.
	ExcludeApplied *bool `json:"exclude_applied,omitempty"`
	ExcludeViewed  bool  `json:"exclude_viewed,omitempty"`
}

func (f Filters) excludeApplied() bool {
	if f.ExcludeApplied == nil {
		return true
	}
	return *f.ExcludeApplied
}

type SortOrder string

const (
	SortByScore  SortOrder = "score_desc"
	SortByRecent SortOrder = "posted_desc"
)

type MatchRequest struct {
	Algorithm models.Algorithm `json:"algorithm"`
	Filters   Filters          `json:"filters"`
	SortOrder SortOrder        `json:"sort_order"`
	Limit     int              `json:"limit"`
}

// MatchService orchestrates scoring: it selects the algorithm variant, runs
// the composite scorer over the candidate pool, applies filters and sort,
// enforces the limit and delegates persistence.
type MatchService interface {
	FindMatches(ctx context.Context, userID string, req MatchRequest) ([]models.MatchScore, error)
}

type matchService struct {
	profiles     pgrepo.ProfileRepository
	jobs         pgrepo.JobRepository
	histories    pgrepo.HistoryRepository
	interactions mongorepo.InteractionRepository
	recorder     HistoryService
	trainer      TrainingService
	scorer       *matching.CompositeScorer
	analyzer     *matching.BehaviorAnalyzer
	cache        cache.Cache
	cfg          matching.Config
	log          *logrus.Logger
}

func NewMatchService(
	profiles pgrepo.ProfileRepository,
	jobs pgrepo.JobRepository,
	histories pgrepo.HistoryRepository,
	interactions mongorepo.InteractionRepository,
	recorder HistoryService,
	trainer TrainingService,
	scorer *matching.CompositeScorer,
	analyzer *matching.BehaviorAnalyzer,
	c cache.Cache,
	cfg matching.Config,
	log *logrus.Logger,
) MatchService {
	if log == nil {
		log = logrus.New()
	}
	return &matchService{
		profiles:     profiles,
		jobs:         jobs,
		histories:    histories,
		interactions: interactions,
		recorder:     recorder,
		trainer:      trainer,
		scorer:       scorer,
		analyzer:     analyzer,
		cache:        c,
		cfg:          cfg,
		log:          log,
	}
}

func (s *matchService) FindMatches(ctx context.Context, userID string, req MatchRequest) ([]models.MatchScore, error) {
	const op = "MatchService.FindMatches"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if req.Algorithm == "" {
		req.Algorithm = models.AlgorithmModelAssisted
	}
	if _, ok := models.ParseAlgorithm(string(req.Algorithm)); !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op, "unknown algorithm", nil)
	}
	if req.Limit <= 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "limit must be positive", nil)
	}
	if req.SortOrder == "" {
		req.SortOrder = SortByScore
	}

	cacheKey := cache.MatchKey(userID, req)
	if s.cache != nil {
		var cached []models.MatchScore
		if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	// All inputs are fetched once before the parallel scoring region.
	ref := time.Now().UTC()
	profile := s.loadProfile(ctx, userID)
	records, agg := s.loadBehavior(ctx, userID, ref)

	if len(records) >= s.cfg.MinHistorySize && req.Algorithm != models.AlgorithmRuleOnly {
		s.trainer.EnsureTrained(ctx, records)
	}
	snapshot := s.trainer.Model().Snapshot()

	candidates, err := s.jobs.ListActive(ctx, s.cfg.CandidatePoolSize)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to load candidate jobs", err)
	}

	scored := s.scoreBatch(ctx, profile, candidates, records, agg, snapshot, req.Algorithm)

	applied, viewed := s.interactedJobIDs(ctx, userID)
	scored = s.applyFilters(scored, candidates, req.Filters, applied, viewed)
	s.sortMatches(scored, req.SortOrder)

	if len(scored) > req.Limit {
		scored = scored[:req.Limit]
	}

	// Persistence must not fail the matching call.
	s.recorder.UpsertBatch(ctx, scored)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, scored, matchCacheTTL); err != nil {
			s.log.WithField("user_id", userID).WithError(err).Debug("match cache write failed")
		}
	}
	return scored, nil
}

// loadProfile treats a missing profile as cold start, not a batch abort.
func (s *matchService) loadProfile(ctx context.Context, userID string) *models.UserProfile {
	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"component": "match_service",
			"user_id":   userID,
		}).WithError(err).Warn("profile unavailable, scoring with defaults")
		return &models.UserProfile{UserID: userID}
	}
	return p
}

func (s *matchService) loadBehavior(ctx context.Context, userID string, ref time.Time) ([]matching.AnalyzedRecord, *matching.Aggregates) {
	since := ref.AddDate(0, 0, -s.cfg.WindowDays)
	events, err := s.interactions.ListByUserSince(ctx, userID, since, int64(s.cfg.MaxRecords))
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"component": "match_service",
			"user_id":   userID,
		}).WithError(err).Warn("interaction history unavailable, scoring cold")
		events = nil
	}
	records := s.analyzer.Analyze(events, s.cfg.WindowDays, ref)
	return records, matching.Aggregate(records)
}

// scoreBatch runs the pure scoring function across workers. Each pair reads
// the same immutable snapshot and inputs; a near-exhausted deadline stops
// scheduling and keeps the partial results already computed.
func (s *matchService) scoreBatch(
	ctx context.Context,
	profile *models.UserProfile,
	jobs []models.Job,
	records []matching.AnalyzedRecord,
	agg *matching.Aggregates,
	snapshot *matching.Snapshot,
	algo models.Algorithm,
) []models.MatchScore {
	results := make([]*models.MatchScore, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ScoreWorkers)
	for i := range jobs {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			sc := s.scorer.Score(matching.ScoreInput{
				Profile:    profile,
				Job:        &jobs[i],
				Aggregates: agg,
				Snapshot:   snapshot,
				HistoryLen: len(records),
			}, algo)
			results[i] = &sc
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.MatchScore, 0, len(jobs))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	if len(out) < len(jobs) {
		s.log.WithFields(logrus.Fields{
			"component": "match_service",
			"scored":    len(out),
			"pool":      len(jobs),
		}).Warn("deadline reached, returning partial batch")
	}
	return out
}

func (s *matchService) interactedJobIDs(ctx context.Context, userID string) (applied, viewed map[string]bool) {
	rows, err := s.histories.ListByUser(ctx, userID)
	if err != nil {
		s.log.WithField("user_id", userID).WithError(err).Warn("history unavailable, exclusion filters skipped")
		return nil, nil
	}
	applied = make(map[string]bool)
	viewed = make(map[string]bool)
	for _, h := range rows {
		if h.AppliedAt != nil {
			applied[h.JobID] = true
		}
		if h.ViewedAt != nil {
			viewed[h.JobID] = true
		}
	}
	return applied, viewed
}

func (s *matchService) applyFilters(scored []models.MatchScore, jobs []models.Job, f Filters, applied, viewed map[string]bool) []models.MatchScore {
	jobByID := make(map[string]*models.Job, len(jobs))
	for i := range jobs {
		jobByID[jobs[i].ID] = &jobs[i]
	}
	catSet := toSet(f.Categories)
	locSet := toSet(f.Locations)
	expSet := toSet(f.ExperienceLevels)

	out := scored[:0]
	for _, sc := range scored {
		if f.MinScore != nil && sc.Composite < *f.MinScore {
			continue
		}
		if f.MaxScore != nil && sc.Composite > *f.MaxScore {
			continue
		}
		if f.excludeApplied() && applied[sc.JobID] {
			continue
		}
		if f.ExcludeViewed && viewed[sc.JobID] {
			continue
		}
		job := jobByID[sc.JobID]
		if job == nil {
			continue
		}
		if len(locSet) > 0 && !locSet[job.Region] {
			continue
		}
		if len(expSet) > 0 && !expSet[string(job.ExperienceLevel)] {
			continue
		}
		if len(catSet) > 0 && !intersects(catSet, job.Categories) {
			continue
		}
		if f.SalaryMin != nil && job.SalaryMid() < *f.SalaryMin {
			continue
		}
		if f.SalaryMax != nil && job.SalaryMid() > *f.SalaryMax {
			continue
		}
		out = append(out, sc)
	}
	return out
}

// sortMatches orders reproducibly: primary key per sort order, ties broken
// by posting recency and finally job id so repeated calls agree.
func (s *matchService) sortMatches(scored []models.MatchScore, order SortOrder) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if order == SortByRecent {
			if !a.PostedAt.Equal(b.PostedAt) {
				return a.PostedAt.After(b.PostedAt)
			}
			if a.Composite != b.Composite {
				return a.Composite > b.Composite
			}
			return a.JobID < b.JobID
		}
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		if !a.PostedAt.Equal(b.PostedAt) {
			return a.PostedAt.After(b.PostedAt)
		}
		return a.JobID < b.JobID
	})
}

func toSet(vals []string) map[string]bool {
	if len(vals) == 0 {
		return nil
	}
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

func intersects(set map[string]bool, vals []string) bool {
	for _, v := range vals {
		if set[v] {
			return true
		}
	}
	return false
}
