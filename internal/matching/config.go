package matching

import (
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// NeutralScore is returned whenever required input is absent and for
	// every field of a below-threshold (cold start) user.
	NeutralScore = 50.0

	// NeutralPrediction is the model answer before the first fit.
	NeutralPrediction = 0.5

	weightEpsilon = 1e-6
)

// Weights splits the composite between the model prediction and the rule
// sub-scores. Must sum to 1.
type Weights struct {
	Model      float64 `json:"model" validate:"gte=0,lte=1"`
	Preference float64 `json:"preference" validate:"gte=0,lte=1"`
	Skill      float64 `json:"skill" validate:"gte=0,lte=1"`
	Experience float64 `json:"experience" validate:"gte=0,lte=1"`
}

func (w Weights) sum() float64 {
	return w.Model + w.Preference + w.Skill + w.Experience
}

// Config carries every tunable of the scoring pipeline. Constructed once,
// validated once, never mutated afterwards.
type Config struct {
	Weights Weights `json:"weights"`

	// ModelBase caps the points a pure model prediction can contribute.
	ModelBase float64 `json:"model_base" validate:"gt=0,lte=100"`

	// MinHistorySize gates personalization: below it every score is NeutralScore.
	MinHistorySize int `json:"min_history_size" validate:"gte=1"`

	WindowDays       int           `json:"window_days" validate:"gte=1"`
	MaxRecords       int           `json:"max_records" validate:"gte=1"`
	AnalyzeWarnAfter time.Duration `json:"analyze_warn_after"`

	// Latent-factor model hyperparameters.
	Factors        int     `json:"factors" validate:"gte=2,lte=64"`
	Iterations     int     `json:"iterations" validate:"gte=1"`
	Regularization float64 `json:"regularization" validate:"gt=0"`
	Alpha          float64 `json:"alpha" validate:"gt=0"`
	Seed           int64   `json:"seed"`

	// Bonus / penalty knobs.
	HighIncomeThreshold float64 `json:"high_income_threshold" validate:"gte=0"`

	// Candidate pool ceiling per matching call.
	CandidatePoolSize int `json:"candidate_pool_size" validate:"gte=1"`

	// Parallelism of the batch scoring region.
	ScoreWorkers int `json:"score_workers" validate:"gte=1"`
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Model:      0.40,
			Preference: 0.20,
			Skill:      0.25,
			Experience: 0.15,
		},
		ModelBase:           75,
		MinHistorySize:      5,
		WindowDays:          30,
		MaxRecords:          1000,
		AnalyzeWarnAfter:    2 * time.Second,
		Factors:             16,
		Iterations:          12,
		Regularization:      0.05,
		Alpha:               8.0,
		Seed:                1,
		HighIncomeThreshold: 8000,
		CandidatePoolSize:   500,
		ScoreWorkers:        8,
	}
}

var validate = validator.New()

// Validate rejects a misconfigured set up front so scoring never has to.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("matching config: %w", err)
	}
	if d := math.Abs(c.Weights.sum() - 1.0); d > weightEpsilon {
		return fmt.Errorf("matching config: weights must sum to 1.0, got %.6f", c.Weights.sum())
	}
	return nil
}

// ruleOnly returns the weight set with the model contribution zeroed and the
// remainder renormalized, keeping rule-only composites on the same scale.
func (w Weights) ruleOnly() Weights {
	rest := w.Preference + w.Skill + w.Experience
	if rest <= 0 {
		// degenerate all-model config: spread evenly
		return Weights{Preference: 1.0 / 3, Skill: 1.0 / 3, Experience: 1.0 / 3}
	}
	return Weights{
		Preference: w.Preference / rest,
		Skill:      w.Skill / rest,
		Experience: w.Experience / rest,
	}
}
