package matching

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joblens/joblens/internal/models"
)

// Engagement base weights per interaction type. Applying outranks saving,
// saving outranks viewing; hiding counts against a tag.
var engagementWeights = map[models.InteractionType]float64{
	models.InteractionApply:     10,
	models.InteractionSave:      7,
	models.InteractionFavorited: 6,
	models.InteractionView:      3,
	models.InteractionClick:     2,
	models.InteractionSearch:    1,
	models.InteractionHidden:    -2,
}

// durationBonusCap limits how many extra points a long dwell can add.
const durationBonusCap = 5.0

// AnalyzedRecord is one interaction event normalized into an engagement
// weight plus temporal features.
type AnalyzedRecord struct {
	UserID     string
	JobID      string
	Type       models.InteractionType
	Engagement float64
	HourOfDay  int
	Weekday    time.Weekday
	Timestamp  time.Time

	Skills          []string
	ExperienceLevel models.ExperienceLevel
	Region          string
	SalaryLevel     string
}

// BehaviorAnalyzer turns raw interaction history into weighted engagement
// records within a time window. Pure aside from warning logs.
type BehaviorAnalyzer struct {
	cfg Config
	log *logrus.Logger
}

func NewBehaviorAnalyzer(cfg Config, log *logrus.Logger) *BehaviorAnalyzer {
	if log == nil {
		log = logrus.New()
	}
	return &BehaviorAnalyzer{cfg: cfg, log: log}
}

// Analyze windows, caps and weighs events. The window is anchored at ref
// (fetched once per batch by the orchestrator), judged against each event's
// own timestamp. Malformed events are skipped, never fatal.
func (a *BehaviorAnalyzer) Analyze(events []models.InteractionEvent, windowDays int, ref time.Time) []AnalyzedRecord {
	start := time.Now()
	if windowDays <= 0 {
		windowDays = a.cfg.WindowDays
	}
	cutoff := ref.AddDate(0, 0, -windowDays)

	out := make([]AnalyzedRecord, 0, len(events))
	dropped := 0
	for _, ev := range events {
		if len(out) >= a.cfg.MaxRecords {
			dropped++
			continue
		}
		if ev.Timestamp.IsZero() || ev.UserID == "" {
			continue // malformed
		}
		if ev.Timestamp.Before(cutoff) || ev.Timestamp.After(ref) {
			continue
		}
		base, ok := engagementWeights[ev.Type]
		if !ok {
			continue
		}

		bonus := ev.Duration / 60.0
		if bonus > durationBonusCap {
			bonus = durationBonusCap
		}
		if bonus < 0 {
			bonus = 0
		}

		ts := ev.Timestamp.UTC()
		out = append(out, AnalyzedRecord{
			UserID:          ev.UserID,
			JobID:           ev.JobID,
			Type:            ev.Type,
			Engagement:      base + bonus,
			HourOfDay:       ts.Hour(),
			Weekday:         ts.Weekday(),
			Timestamp:       ts,
			Skills:          ev.Skills,
			ExperienceLevel: ev.ExperienceLevel,
			Region:          ev.Region,
			SalaryLevel:     ev.SalaryLevel,
		})
	}

	if dropped > 0 {
		a.log.WithFields(logrus.Fields{
			"component": "behavior_analyzer",
			"dropped":   dropped,
			"ceiling":   a.cfg.MaxRecords,
		}).Warn("interaction history exceeds record ceiling, excess dropped")
	}
	if elapsed := time.Since(start); elapsed > a.cfg.AnalyzeWarnAfter {
		a.log.WithFields(logrus.Fields{
			"component":  "behavior_analyzer",
			"elapsed_ms": elapsed.Milliseconds(),
			"events":     len(events),
		}).Warn("behavior analysis slower than threshold")
	}
	return out
}

// Aggregates condenses analyzed records into the weighted signals RuleScorer
// consumes. Weights floor at zero so hiding suppresses but never inverts a tag.
type Aggregates struct {
	SkillWeights     map[string]float64
	ExperienceCounts map[models.ExperienceLevel]float64
	RegionCounts     map[string]float64
	SalaryLevels     map[string]float64
	TotalEngagement  float64
	Records          int
}

func Aggregate(records []AnalyzedRecord) *Aggregates {
	agg := &Aggregates{
		SkillWeights:     make(map[string]float64),
		ExperienceCounts: make(map[models.ExperienceLevel]float64),
		RegionCounts:     make(map[string]float64),
		SalaryLevels:     make(map[string]float64),
	}
	for _, r := range records {
		w := r.Engagement
		agg.TotalEngagement += w
		agg.Records++
		for _, s := range r.Skills {
			agg.SkillWeights[s] += w
		}
		if r.ExperienceLevel != "" {
			agg.ExperienceCounts[r.ExperienceLevel] += w
		}
		if r.Region != "" {
			agg.RegionCounts[r.Region] += w
		}
		if r.SalaryLevel != "" {
			agg.SalaryLevels[r.SalaryLevel] += w
		}
	}
	for k, v := range agg.SkillWeights {
		if v < 0 {
			agg.SkillWeights[k] = 0
		}
	}
	for k, v := range agg.ExperienceCounts {
		if v < 0 {
			agg.ExperienceCounts[k] = 0
		}
	}
	return agg
}
