package matching

import (
	"github.com/sirupsen/logrus"

	"github.com/joblens/joblens/internal/models"
)

// CompositeScorer combines rule sub-scores with the model prediction into a
// single bounded score. The scoring path is deterministic: identical
// (profile, job, aggregates, snapshot) inputs yield identical output.
type CompositeScorer struct {
	cfg Config
	log *logrus.Logger
}

func NewCompositeScorer(cfg Config, log *logrus.Logger) (*CompositeScorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.New()
	}
	return &CompositeScorer{cfg: cfg, log: log}, nil
}

// ScoreInput carries everything a single (user, job) scoring needs. All
// fields are immutable for the duration of the call.
type ScoreInput struct {
	Profile    *models.UserProfile
	Job        *models.Job
	Aggregates *Aggregates
	Snapshot   *Snapshot
	HistoryLen int
}

// Score dispatches over the algorithm variant. Hybrid averages the rule-only
// and model-assisted results field-wise to smooth cold-start volatility.
func (s *CompositeScorer) Score(in ScoreInput, algo models.Algorithm) models.MatchScore {
	switch algo {
	case models.AlgorithmRuleOnly:
		return s.scoreOnce(in, models.AlgorithmRuleOnly)
	case models.AlgorithmHybrid:
		rule := s.scoreOnce(in, models.AlgorithmRuleOnly)
		model := s.scoreOnce(in, models.AlgorithmModelAssisted)
		return averageScores(rule, model)
	default:
		return s.scoreOnce(in, models.AlgorithmModelAssisted)
	}
}

func (s *CompositeScorer) scoreOnce(in ScoreInput, algo models.Algorithm) models.MatchScore {
	out := models.MatchScore{
		Algorithm: algo,
	}
	if in.Job != nil {
		out.JobID = in.Job.ID
		out.PostedAt = in.Job.PostedAt
	}
	if in.Profile != nil {
		out.UserID = in.Profile.UserID
	}

	// Hard gate: too little history means the flat default everywhere, no
	// model involvement, no rule bias.
	if in.HistoryLen < s.cfg.MinHistorySize {
		out.Composite = NeutralScore
		out.Scores = models.SubScores{
			Basic: NeutralScore, Location: NeutralScore, Category: NeutralScore,
			Salary: NeutralScore, Feature: NeutralScore, Preference: NeutralScore,
			Skill: NeutralScore, Experience: NeutralScore,
		}
		return out
	}

	out.Scores = models.SubScores{
		Basic:      s.safeScore(out, "basic", func() float64 { return BasicScore(in.Job) }),
		Location:   s.safeScore(out, "location", func() float64 { return LocationScore(in.Job, in.Profile, in.Aggregates) }),
		Category:   s.safeScore(out, "category", func() float64 { return CategoryScore(in.Job, in.Profile) }),
		Salary:     s.safeScore(out, "salary", func() float64 { return SalaryScore(in.Job, in.Profile, in.Aggregates) }),
		Feature:    s.safeScore(out, "feature", func() float64 { return FeatureScore(in.Job) }),
		Preference: s.safeScore(out, "preference", func() float64 { return PreferenceScore(in.Job, in.Profile) }),
		Skill:      s.safeScore(out, "skill", func() float64 { return SkillScore(in.Job, in.Aggregates) }),
		Experience: s.safeScore(out, "experience", func() float64 { return ExperienceScore(in.Job, in.Aggregates) }),
	}

	w := s.cfg.Weights
	modelPoints := 0.0
	if algo == models.AlgorithmRuleOnly {
		w = w.ruleOnly()
	} else {
		pred := in.Snapshot.Predict(out.UserID, out.JobID)
		modelPoints = s.cfg.ModelBase * pred
	}

	composite := w.Model*modelPoints +
		w.Preference*out.Scores.Preference +
		w.Skill*out.Scores.Skill +
		w.Experience*out.Scores.Experience

	out.Bonuses, out.Penalties = s.adjustments(in.Job)
	for _, v := range out.Bonuses {
		composite += v
	}
	for _, v := range out.Penalties {
		composite += v
	}

	out.Composite = clampScore(composite)
	return out
}

// adjustments computes the named additive bonus/penalty hooks.
func (s *CompositeScorer) adjustments(job *models.Job) (map[string]float64, map[string]float64) {
	if job == nil {
		return nil, nil
	}
	var bonuses, penalties map[string]float64
	if mid := job.SalaryMid(); mid >= s.cfg.HighIncomeThreshold && mid > 0 {
		bonuses = map[string]float64{"high_income_job": 5}
	} else if mid <= 0 {
		penalties = map[string]float64{"missing_salary": -3}
	}
	if job.Region == "" && len(job.Skills) == 0 {
		if penalties == nil {
			penalties = map[string]float64{}
		}
		penalties["missing_critical_fields"] = -5
	}
	return bonuses, penalties
}

// safeScore shields batch scoring from a single malformed job: a panicking
// sub-score is logged with context and replaced by the neutral default.
func (s *CompositeScorer) safeScore(ms models.MatchScore, name string, fn func() float64) (v float64) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{
				"component": "composite_scorer",
				"sub_score": name,
				"user_id":   ms.UserID,
				"job_id":    ms.JobID,
				"panic":     r,
			}).Error("sub-score computation failed, using neutral default")
			v = NeutralScore
		}
	}()
	return clampScore(fn())
}

// averageScores merges two variants field-wise.
func averageScores(a, b models.MatchScore) models.MatchScore {
	out := models.MatchScore{
		UserID:    a.UserID,
		JobID:     a.JobID,
		PostedAt:  a.PostedAt,
		Algorithm: models.AlgorithmHybrid,
		Composite: (a.Composite + b.Composite) / 2,
		Scores: models.SubScores{
			Basic:      (a.Scores.Basic + b.Scores.Basic) / 2,
			Location:   (a.Scores.Location + b.Scores.Location) / 2,
			Category:   (a.Scores.Category + b.Scores.Category) / 2,
			Salary:     (a.Scores.Salary + b.Scores.Salary) / 2,
			Feature:    (a.Scores.Feature + b.Scores.Feature) / 2,
			Preference: (a.Scores.Preference + b.Scores.Preference) / 2,
			Skill:      (a.Scores.Skill + b.Scores.Skill) / 2,
			Experience: (a.Scores.Experience + b.Scores.Experience) / 2,
		},
		Bonuses:   averageMaps(a.Bonuses, b.Bonuses),
		Penalties: averageMaps(a.Penalties, b.Penalties),
	}
	return out
}

func averageMaps(a, b map[string]float64) map[string]float64 {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]float64, len(a)+len(b))
	for k, v := range a {
		out[k] = v / 2
	}
	for k, v := range b {
		out[k] += v / 2
	}
	return out
}
