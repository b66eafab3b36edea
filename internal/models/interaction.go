package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type InteractionType string

const (
	InteractionView      InteractionType = "view"
	InteractionClick     InteractionType = "click"
	InteractionSave      InteractionType = "save"
	InteractionApply     InteractionType = "apply"
	InteractionSearch    InteractionType = "search"
	InteractionHidden    InteractionType = "hidden"
	InteractionFavorited InteractionType = "favorited"
)

// InteractionEvent is append-only: written once at interaction time, read
// back as training/analysis input.
type InteractionEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	JobID     string             `bson:"job_id" json:"job_id"`
	Type      InteractionType    `bson:"type" json:"type"`
	Duration  float64            `bson:"duration_seconds,omitempty" json:"duration_seconds,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`

	// Tags extracted at interaction time, all optional.
	Skills          []string        `bson:"skills,omitempty" json:"skills,omitempty"`
	ExperienceLevel ExperienceLevel `bson:"experience_level,omitempty" json:"experience_level,omitempty"`
	Region          string          `bson:"region,omitempty" json:"region,omitempty"`
	SalaryLevel     string          `bson:"salary_level,omitempty" json:"salary_level,omitempty"`
}
