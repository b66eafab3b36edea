package models

import (
	"time"

	"github.com/lib/pq"
)

type ExperienceLevel string

const (
	ExperienceEntry     ExperienceLevel = "entry"
	ExperienceJunior    ExperienceLevel = "junior"
	ExperienceMid       ExperienceLevel = "mid"
	ExperienceSenior    ExperienceLevel = "senior"
	ExperiencePrincipal ExperienceLevel = "principal"
)

// ExperienceRank maps the ordered tier scale to integers for distance math.
// Unknown levels rank -1.
func ExperienceRank(l ExperienceLevel) int {
	switch l {
	case ExperienceEntry:
		return 0
	case ExperienceJunior:
		return 1
	case ExperienceMid:
		return 2
	case ExperienceSenior:
		return 3
	case ExperiencePrincipal:
		return 4
	default:
		return -1
	}
}

// Job is an immutable snapshot per scoring call.
type Job struct {
	ID          string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title       string `gorm:"column:title;type:text" json:"title"`
	Region      string `gorm:"column:region;type:text" json:"region"`
	MacroRegion string `gorm:"column:macro_region;type:text" json:"macro_region"`

	SalaryMin float64 `gorm:"column:salary_min;type:numeric" json:"salary_min"`
	SalaryMax float64 `gorm:"column:salary_max;type:numeric" json:"salary_max"`

	EmploymentType  string          `gorm:"column:employment_type;type:text" json:"employment_type"`
	ExperienceLevel ExperienceLevel `gorm:"column:experience_level;type:text" json:"experience_level"`

	Categories pq.StringArray `gorm:"column:categories;type:text[]" json:"categories"`
	Skills     pq.StringArray `gorm:"column:skills;type:text[]" json:"skills"`
	Features   pq.StringArray `gorm:"column:features;type:text[]" json:"features"`

	PostedAt time.Time `gorm:"column:posted_at;type:timestamptz;index" json:"posted_at"`
	Active   bool      `gorm:"column:active;index" json:"active"`
}

func (Job) TableName() string { return "jobs" }

// SalaryMid averages the declared range; a half-open range collapses to the
// declared bound, and a job with no salary info reports 0.
func (j *Job) SalaryMid() float64 {
	switch {
	case j.SalaryMin > 0 && j.SalaryMax > 0:
		return (j.SalaryMin + j.SalaryMax) / 2
	case j.SalaryMin > 0:
		return j.SalaryMin
	case j.SalaryMax > 0:
		return j.SalaryMax
	default:
		return 0
	}
}
