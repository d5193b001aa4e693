package lab

import "time"

// CheckInRecord is one biometric telemetry sample as stored by the platform.
// Records are read-only inside the lab; the engine never writes them back.
type CheckInRecord struct {
	UserID       string    `json:"user_id"`
	Timestamp    time.Time `json:"timestamp"`
	SleepHours   float64   `json:"sleep_hours"`
	SleepQuality int       `json:"sleep_quality"` // 0-10
	FatigueLevel int       `json:"fatigue_level"` // 0-100
	StressLevel  int       `json:"stress_level"`  // 0-100
	FocusLevel   int       `json:"focus_level"`   // 0-100
}

// Sample is the input vector a Scorer consumes: either one user's latest
// check-in or the organizational baseline (snapshot means).
type Sample struct {
	SleepHours   float64 `json:"sleep_hours"`
	SleepQuality float64 `json:"sleep_quality"`
	FatigueLevel float64 `json:"fatigue_level"`
}

// Projection is a point-in-time stress/focus projection, both in [0,100].
type Projection struct {
	Stress float64 `json:"stress"`
	Focus  float64 `json:"focus"`
}

// Operating modes recommended from a projection.
const (
	ModeGuidedPause     = "Guided Pause"
	ModeMicroLearning   = "Micro-learning"
	ModeHighPerformance = "High Performance"
)

// SuggestedAction is a concrete intervention attached to a prediction.
type SuggestedAction struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ProjectionResult is the per-user prediction response.
type ProjectionResult struct {
	Inputs          Sample            `json:"inputs"`
	Projection      Projection        `json:"projection"`
	RecommendedMode string            `json:"recommended_mode"`
	Confidence      int               `json:"confidence"`
	TrainedAt       *time.Time        `json:"trained_at"`
	DatasetSize     int               `json:"dataset_size"`
	Actions         []SuggestedAction `json:"actions"`
}

// TeamHeat is one team's entry in the organizational heatmap.
type TeamHeat struct {
	TeamID          string  `json:"team_id"`
	TeamName        string  `json:"team_name"`
	StressRisk      float64 `json:"stress_risk"`
	FocusScore      float64 `json:"focus_score"`
	RecommendedMode string  `json:"recommended_mode"`
}

// Signal is one organization-wide indicator with its prevalence and a
// fixed recommended action.
type Signal struct {
	Label  string `json:"label"`
	Impact int    `json:"impact"` // 0-100, percentage of snapshot rows
	Action string `json:"action"`
}

// OrgSnapshot is the organization-wide aggregate view.
type OrgSnapshot struct {
	TrainedAt     *time.Time `json:"trained_at"`
	DatasetSize   int        `json:"dataset_size"`
	OrgProjection Projection `json:"org_projection"`
	Confidence    int        `json:"confidence"`
	StressAverage float64    `json:"stress_average"`
	TeamHeatmap   []TeamHeat `json:"team_heatmap"`
	TopSignals    []Signal   `json:"top_signals"`
}

// DashboardStats carries the flat organization averages used by the
// manager dashboard header.
type DashboardStats struct {
	StressAverage float64 `json:"stress_average"`
	FocusAverage  float64 `json:"focus_average"`
}
