package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// UserProfile is owned wholesale by the retraining loop; scorers treat it as
// a read-only snapshot.
type UserProfile struct {
	UserID      string `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	HomeRegion  string `gorm:"column:home_region;type:text" json:"home_region"`
	MacroRegion string `gorm:"column:macro_region;type:text" json:"macro_region"`

	DesiredSalaryMin float64 `gorm:"column:desired_salary_min;type:numeric" json:"desired_salary_min"`
	DesiredSalaryMax float64 `gorm:"column:desired_salary_max;type:numeric" json:"desired_salary_max"`

	// JSONB affinity maps, feature name / category code -> weight in [0,1]
	Preferences       datatypes.JSON `gorm:"column:preferences;type:jsonb" json:"preferences"`
	CategoryInterests datatypes.JSON `gorm:"column:category_interests;type:jsonb" json:"category_interests"`

	// pgvector, rewritten on every retrain
	LatentFactors pgvector.Vector `gorm:"column:latent_factors;type:vector(16)" json:"latent_factors"`

	ClusterLabel string    `gorm:"column:cluster_label;type:text" json:"cluster_label"`
	UpdatedAt    time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (UserProfile) TableName() string { return "profiles" }
