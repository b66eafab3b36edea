package models

import (
	"time"

	"gorm.io/datatypes"
)

type Algorithm string

const (
	AlgorithmRuleOnly      Algorithm = "rule_only"
	AlgorithmModelAssisted Algorithm = "model_assisted"
	AlgorithmHybrid        Algorithm = "hybrid"
)

func ParseAlgorithm(s string) (Algorithm, bool) {
	switch Algorithm(s) {
	case AlgorithmRuleOnly, AlgorithmModelAssisted, AlgorithmHybrid:
		return Algorithm(s), true
	}
	return "", false
}

// SubScores holds the named sub-scores, each in [0,100].
type SubScores struct {
	Basic      float64 `json:"basic"`
	Location   float64 `json:"location"`
	Category   float64 `json:"category"`
	Salary     float64 `json:"salary"`
	Feature    float64 `json:"feature"`
	Preference float64 `json:"preference"`
	Skill      float64 `json:"skill"`
	Experience float64 `json:"experience"`
}

// MatchScore is constructed per scoring call and persisted only as a
// MatchHistory row.
type MatchScore struct {
	UserID    string             `json:"user_id"`
	JobID     string             `json:"job_id"`
	Composite float64            `json:"composite_score"`
	Scores    SubScores          `json:"score_breakdown"`
	Bonuses   map[string]float64 `json:"bonuses,omitempty"`
	Penalties map[string]float64 `json:"penalties,omitempty"`
	Algorithm Algorithm          `json:"algorithm"`
	PostedAt  time.Time          `json:"-"`
}

// MatchHistory keeps at most one row per (user, job). Interaction timestamps
// are set at first sight and never overwritten.
type MatchHistory struct {
	UserID string `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	JobID  string `gorm:"column:job_id;type:uuid;primaryKey" json:"job_id"`

	Score     float64        `gorm:"column:score;type:numeric" json:"score"`
	Algorithm Algorithm      `gorm:"column:algorithm;type:text" json:"algorithm"`
	Rank      int            `gorm:"column:rank" json:"rank"`
	Breakdown datatypes.JSON `gorm:"column:breakdown;type:jsonb" json:"breakdown"`

	ViewedAt    *time.Time `gorm:"column:viewed_at;type:timestamptz" json:"viewed_at,omitempty"`
	ClickedAt   *time.Time `gorm:"column:clicked_at;type:timestamptz" json:"clicked_at,omitempty"`
	AppliedAt   *time.Time `gorm:"column:applied_at;type:timestamptz" json:"applied_at,omitempty"`
	FavoritedAt *time.Time `gorm:"column:favorited_at;type:timestamptz" json:"favorited_at,omitempty"`
	HiddenAt    *time.Time `gorm:"column:hidden_at;type:timestamptz" json:"hidden_at,omitempty"`

	Feedback string `gorm:"column:feedback;type:text" json:"feedback,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (MatchHistory) TableName() string { return "match_history" }

// MarkInteraction sets the flag for the interaction type, cascading implied
// flags: applied implies clicked implies viewed. Each timestamp is set at
// first sight and never overwritten.
func (h *MatchHistory) MarkInteraction(t InteractionType, at time.Time) {
	setOnce := func(field **time.Time) {
		if *field == nil {
			ts := at
			*field = &ts
		}
	}
	switch t {
	case InteractionApply:
		setOnce(&h.AppliedAt)
		setOnce(&h.ClickedAt)
		setOnce(&h.ViewedAt)
	case InteractionClick:
		setOnce(&h.ClickedAt)
		setOnce(&h.ViewedAt)
	case InteractionView:
		setOnce(&h.ViewedAt)
	case InteractionSave, InteractionFavorited:
		setOnce(&h.FavoritedAt)
	case InteractionHidden:
		setOnce(&h.HiddenAt)
	}
}
