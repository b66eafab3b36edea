package matching

import (
	"encoding/json"

	"github.com/joblens/joblens/internal/models"
)

// Rule sub-scores. Each is a pure function returning a value in [0,100] and
// falling back to NeutralScore when its required input is absent.

const (
	locationExact = 100.0
	locationMacro = 70.0
	locationOther = 30.0

	// Behavioral fallbacks, used when the profile declares no home region:
	// the region the user interacts with most stands in for it, at lower
	// confidence than a declared match.
	locationDominant = 85.0
	locationSeen     = 60.0

	// Per-tag contribution cap for overlap scores.
	tagContribution = 25.0
	// Interaction weight at which a tag's strength saturates.
	tagStrengthCap = 30.0

	// Salary-band fallback scoring, same shape as the experience tiers:
	// the band the user historically engaged with scores highest, each
	// band of distance loses a step.
	salaryBandExact = 85.0
	salaryBandStep  = 25.0

	// Monthly salary cutoffs for the low / medium / high bands carried on
	// interaction events.
	salaryMediumFloor = 3000.0
	salaryHighFloor   = 6000.0
)

// highValueSkills carry a larger base weight than ordinary tags.
var highValueSkills = map[string]float64{
	"go":         1.5,
	"python":     1.5,
	"kubernetes": 1.4,
	"sql":        1.3,
	"aws":        1.3,
	"react":      1.2,
	"fastapi":    1.2,
}

func skillBaseWeight(tag string) float64 {
	if w, ok := highValueSkills[tag]; ok {
		return w
	}
	return 1.0
}

// highValueFeatures mark listing perks that historically drive applications.
var highValueFeatures = map[string]bool{
	"same_day_pay":   true,
	"transportation": true,
	"remote":         true,
	"flexible_hours": true,
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// LocationScore: exact region 100, shared macro-region 70, anything else 30.
// Without a declared home region the user's interaction regions stand in:
// the dominant one scores 85, any positively-weighted one 60.
func LocationScore(job *models.Job, profile *models.UserProfile, agg *Aggregates) float64 {
	if job == nil || job.Region == "" {
		return NeutralScore
	}
	if profile != nil && profile.HomeRegion != "" {
		if job.Region == profile.HomeRegion {
			return locationExact
		}
		if job.MacroRegion != "" && job.MacroRegion == profile.MacroRegion {
			return locationMacro
		}
		return locationOther
	}
	if agg == nil || len(agg.RegionCounts) == 0 {
		return NeutralScore
	}
	if job.Region == dominantKey(agg.RegionCounts) {
		return locationDominant
	}
	if agg.RegionCounts[job.Region] > 0 {
		return locationSeen
	}
	return locationOther
}

// dominantKey picks the heaviest positively-weighted key, ties broken
// lexicographically so the fallback stays deterministic.
func dominantKey(m map[string]float64) string {
	best := ""
	bestW := 0.0
	for k, w := range m {
		if w <= 0 {
			continue
		}
		if best == "" || w > bestW || (w == bestW && k < best) {
			best, bestW = k, w
		}
	}
	return best
}

// SalaryScore compares the job's salary midpoint against the desired range.
// Inside the range scores 100; below the minimum scales down proportionally
// into 0..50; above the maximum climbs back toward 100 on a saturating curve.
// Without a declared range the salary bands the user interacted with stand
// in, scored by band distance.
func SalaryScore(job *models.Job, profile *models.UserProfile, agg *Aggregates) float64 {
	if job == nil {
		return NeutralScore
	}
	mid := job.SalaryMid()
	if mid <= 0 {
		return NeutralScore
	}
	if profile == nil {
		return salaryLevelScore(mid, agg)
	}
	min, max := profile.DesiredSalaryMin, profile.DesiredSalaryMax
	if min <= 0 && max <= 0 {
		return salaryLevelScore(mid, agg)
	}
	if max <= 0 {
		max = min
	}
	if min <= 0 {
		min = max
	}
	switch {
	case mid >= min && mid <= max:
		return 100
	case mid < min:
		return clampScore(50 * mid / min)
	default:
		overshoot := (mid - max) / max
		return clampScore(100 - 20/(1+overshoot*4))
	}
}

var salaryBandRank = map[string]int{"low": 0, "medium": 1, "high": 2}

func salaryBand(mid float64) int {
	switch {
	case mid >= salaryHighFloor:
		return salaryBandRank["high"]
	case mid >= salaryMediumFloor:
		return salaryBandRank["medium"]
	default:
		return salaryBandRank["low"]
	}
}

// salaryLevelScore scores a job's band against the bands the user engaged
// with, weighted by engagement. Exact band scores 85, each band of distance
// loses 25, floored at zero.
func salaryLevelScore(mid float64, agg *Aggregates) float64 {
	if agg == nil || len(agg.SalaryLevels) == 0 {
		return NeutralScore
	}
	band := salaryBand(mid)
	total := 0.0
	weighted := 0.0
	for level, w := range agg.SalaryLevels {
		rank, ok := salaryBandRank[level]
		if !ok || w <= 0 {
			continue
		}
		dist := band - rank
		if dist < 0 {
			dist = -dist
		}
		score := salaryBandExact - salaryBandStep*float64(dist)
		if score < 0 {
			score = 0
		}
		total += w
		weighted += w * score
	}
	if total <= 0 {
		return NeutralScore
	}
	return clampScore(weighted / total)
}

// SkillScore measures overlap between the job's skill tags and the user's
// weighted interaction aggregates. Each matching tag contributes its base
// weight scaled by interaction strength, capped per tag.
func SkillScore(job *models.Job, agg *Aggregates) float64 {
	if job == nil || len(job.Skills) == 0 {
		return NeutralScore
	}
	if agg == nil || len(agg.SkillWeights) == 0 {
		return NeutralScore
	}
	return overlapScore(job.Skills, agg.SkillWeights, skillBaseWeight)
}

func overlapScore(tags []string, weights map[string]float64, base func(string) float64) float64 {
	total := 0.0
	for _, tag := range tags {
		w := weights[tag]
		if w <= 0 {
			continue
		}
		strength := w / tagStrengthCap
		if strength > 1 {
			strength = 1
		}
		total += base(tag) * strength * tagContribution
	}
	return clampScore(total)
}

// CategoryScore averages the user's declared interest across the job's
// category codes.
func CategoryScore(job *models.Job, profile *models.UserProfile) float64 {
	if job == nil || len(job.Categories) == 0 || profile == nil {
		return NeutralScore
	}
	interests := decodeWeightMap(profile.CategoryInterests)
	if len(interests) == 0 {
		return NeutralScore
	}
	total := 0.0
	for _, c := range job.Categories {
		total += clamp01(interests[c])
	}
	return clampScore(100 * total / float64(len(job.Categories)))
}

// ExperienceScore weighs the ordered-tier distance between the job's declared
// level and the user's historically preferred tiers. Exact match scores
// highest, each step away loses 30 points.
func ExperienceScore(job *models.Job, agg *Aggregates) float64 {
	if job == nil || job.ExperienceLevel == "" {
		return NeutralScore
	}
	jobRank := models.ExperienceRank(job.ExperienceLevel)
	if jobRank < 0 {
		return NeutralScore
	}
	if agg == nil || len(agg.ExperienceCounts) == 0 {
		return NeutralScore
	}
	totalWeight := 0.0
	score := 0.0
	for tier, w := range agg.ExperienceCounts {
		r := models.ExperienceRank(tier)
		if r < 0 || w <= 0 {
			continue
		}
		d := jobRank - r
		if d < 0 {
			d = -d
		}
		tierScore := 100.0 - 30.0*float64(d)
		if tierScore < 0 {
			tierScore = 0
		}
		score += w * tierScore
		totalWeight += w
	}
	if totalWeight <= 0 {
		return NeutralScore
	}
	return clampScore(score / totalWeight)
}

// PreferenceScore applies the overlap mechanism to declared feature flags
// against the user's preference map.
func PreferenceScore(job *models.Job, profile *models.UserProfile) float64 {
	if job == nil || len(job.Features) == 0 || profile == nil {
		return NeutralScore
	}
	prefs := decodeWeightMap(profile.Preferences)
	if len(prefs) == 0 {
		return NeutralScore
	}
	total := 0.0
	for _, f := range job.Features {
		total += clamp01(prefs[f])
	}
	return clampScore(100 * total / float64(len(job.Features)))
}

// FeatureScore rates the listing's own perks independent of the user.
func FeatureScore(job *models.Job) float64 {
	if job == nil || len(job.Features) == 0 {
		return NeutralScore
	}
	score := NeutralScore
	for _, f := range job.Features {
		if highValueFeatures[f] {
			score += 10
		}
	}
	return clampScore(score)
}

// BasicScore rates listing completeness: each filled structured field earns
// a share of the full score.
func BasicScore(job *models.Job) float64 {
	if job == nil {
		return NeutralScore
	}
	filled := 0
	if job.Region != "" {
		filled++
	}
	if job.SalaryMid() > 0 {
		filled++
	}
	if len(job.Skills) > 0 {
		filled++
	}
	if len(job.Categories) > 0 {
		filled++
	}
	if job.ExperienceLevel != "" {
		filled++
	}
	if job.EmploymentType != "" {
		filled++
	}
	return clampScore(100 * float64(filled) / 6)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func decodeWeightMap(raw []byte) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]float64
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
