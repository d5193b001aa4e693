package lab

import (
	"fmt"
	"math"
)

// RiskLevel is the discrete burnout severity bucket.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// FeatureVector is the aggregated per-user input of the burnout scorer.
// All values are percentages 0-100 except sleep hours and the late course
// count; missing values default to zero.
type FeatureVector struct {
	MeanStress        float64 `json:"mean_stress"`
	MeanFatigue       float64 `json:"mean_fatigue"`
	MeanSleepHours    float64 `json:"mean_sleep_hours"`
	MeanFocus         float64 `json:"mean_focus"`
	LateCourseCount   float64 `json:"late_course_count"`
	StressVariability float64 `json:"stress_variability"`
}

// RiskAssessment is the burnout classification for one feature vector.
type RiskAssessment struct {
	RiskScore       float64               `json:"risk_score"`
	RiskLevel       RiskLevel             `json:"risk_level"`
	Probabilities   map[RiskLevel]float64 `json:"probabilities"`
	Recommendations []string              `json:"recommendations"`
}

// Scoring weights. The variability term is an additive jitter on the
// final score, not a normalized component.
const (
	stressWeight      = 0.30
	fatigueWeight     = 0.25
	sleepWeight       = 0.20
	focusWeight       = 0.15
	lateWeight        = 0.10
	variabilityFactor = 5.0

	healthySleepHours = 6.0
	lateCourseCeiling = 5.0
)

// Risk level boundaries, lower bound inclusive.
const (
	mediumThreshold   = 25.0
	highThreshold     = 50.0
	criticalThreshold = 75.0
)

// AssessBurnout maps an aggregated feature vector to a burnout risk
// assessment. Pure function of its input.
func AssessBurnout(f FeatureVector) RiskAssessment {
	score := riskScore(f)
	level := classifyRisk(score)

	return RiskAssessment{
		RiskScore:       score,
		RiskLevel:       level,
		Probabilities:   synthesizeProbabilities(score),
		Recommendations: recommendations(level, f),
	}
}

func riskScore(f FeatureVector) float64 {
	sleepDeficit := 0.0
	if f.MeanSleepHours < healthySleepHours {
		sleepDeficit = (healthySleepHours - f.MeanSleepHours) / healthySleepHours * 100
	}
	lateNorm := clamp(f.LateCourseCount/lateCourseCeiling*100, 0, 100)

	score := f.MeanStress*stressWeight +
		f.MeanFatigue*fatigueWeight +
		sleepDeficit*sleepWeight +
		(100-f.MeanFocus)*focusWeight +
		lateNorm*lateWeight +
		f.StressVariability*variabilityFactor

	return clamp(score, 0, 100)
}

func classifyRisk(score float64) RiskLevel {
	switch {
	case score < mediumThreshold:
		return RiskLow
	case score < highThreshold:
		return RiskMedium
	case score < criticalThreshold:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// synthesizeProbabilities builds smoothed memberships around each
// bucket's center and renormalizes them to sum to one. When every bucket
// evaluates to zero the memberships are left as-is rather than dividing
// by zero.
func synthesizeProbabilities(score float64) map[RiskLevel]float64 {
	probs := map[RiskLevel]float64{
		RiskLow:      0,
		RiskMedium:   0,
		RiskHigh:     0,
		RiskCritical: 0,
	}

	if score < 25 {
		probs[RiskLow] = clamp((25-score)/25, 0, 1)
	}
	if score > 10 && score < 65 {
		probs[RiskMedium] = clamp(1-math.Abs(score-37.5)/25, 0, 1)
	}
	if score > 40 && score < 85 {
		probs[RiskHigh] = clamp(1-math.Abs(score-62.5)/25, 0, 1)
	}
	if score > 75 {
		probs[RiskCritical] = clamp((score-75)/25, 0, 1)
	}

	total := 0.0
	for _, p := range probs {
		total += p
	}
	if total == 0 {
		total = 1
	}
	for level, p := range probs {
		probs[level] = p / total
	}

	return probs
}

func recommendations(level RiskLevel, f FeatureVector) []string {
	var recs []string

	switch level {
	case RiskHigh, RiskCritical:
		recs = append(recs,
			"Talk to your manager about your current workload",
			"Consider taking a few days off")
		if f.MeanStress > 70 {
			recs = append(recs, "Your stress levels are elevated. Practice relaxation techniques")
		}
		if f.MeanSleepHours < healthySleepHours {
			recs = append(recs, "You are sleeping too little. Aim for at least 7-8 hours")
		}
	case RiskMedium:
		recs = append(recs,
			"Monitor your stress levels regularly",
			"Keep a steady exercise routine")
		if f.LateCourseCount > 0 {
			recs = append(recs, fmt.Sprintf("You have %d overdue course(s). Reorganize your priorities", int(f.LateCourseCount)))
		}
	default:
		recs = append(recs,
			"Keep up your work-life balance",
			"Share your well-being practices with the team")
	}

	return recs
}
