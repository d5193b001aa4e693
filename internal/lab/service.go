package lab

import (
	"context"
	"log/slog"
	"math"
)

// Confidence saturates once this many check-ins back the model.
const confidenceSaturation = 200

// Fixed organization-wide indicators, reported in this order.
var signalDefs = []struct {
	label  string
	action string
	pred   func(CheckInRecord) bool
}{
	{
		label:  "Sleep below 6h",
		action: "Unlock focus pauses",
		pred:   func(r CheckInRecord) bool { return r.SleepHours < 6 },
	},
	{
		label:  "Elevated fatigue",
		action: "Schedule a coaching telemetry review",
		pred:   func(r CheckInRecord) bool { return r.FatigueLevel > 70 },
	},
	{
		label:  "Restorative sleep",
		action: "Scale up green micro-learning",
		pred:   func(r CheckInRecord) bool { return r.SleepQuality >= 8 },
	},
}

// Service is the Predictive Lab facade: per-user projections,
// organization aggregation, and burnout assessment, all reading through
// the same freshness-guarded model cache.
type Service struct {
	cache  *ModelCache
	source CheckInSource
	teams  TeamDirectory
}

// NewService wires the lab around one shared model cache.
func NewService(cache *ModelCache, source CheckInSource, teams TeamDirectory) *Service {
	return &Service{cache: cache, source: source, teams: teams}
}

// PredictForUser projects stress and focus for one user, or for the
// organizational baseline when userID is empty or unknown. Missing users
// are not an error; the projection degrades to the baseline.
func (s *Service) PredictForUser(ctx context.Context, userID string) (*ProjectionResult, error) {
	state, err := s.cache.EnsureFresh(ctx)
	if err != nil {
		return nil, err
	}

	sample, fromUser := s.sampleFor(ctx, state, userID)
	projection := state.Predict(sample)

	result := &ProjectionResult{
		Inputs:          sample,
		Projection:      projection,
		RecommendedMode: recommendMode(projection.Stress, projection.Focus),
		Confidence:      confidence(state.DatasetSize()),
		TrainedAt:       state.TrainedAtPtr(),
		DatasetSize:     state.DatasetSize(),
		Actions:         suggestedActions(projection),
	}

	slog.Debug("Projection computed",
		"from_user_sample", fromUser,
		"stress", projection.Stress,
		"focus", projection.Focus,
		"mode", result.RecommendedMode)

	return result, nil
}

// sampleFor builds the scorer input: the user's latest check-in when
// available, otherwise the organizational baseline.
func (s *Service) sampleFor(ctx context.Context, state *ModelState, userID string) (Sample, bool) {
	if userID == "" {
		return state.Snapshot.Baseline(), false
	}

	record, err := s.source.FetchLatestForUser(ctx, userID)
	if err != nil {
		slog.Warn("Latest check-in lookup failed, using organizational baseline",
			"user_id", userID, "error", err)
		return state.Snapshot.Baseline(), false
	}
	if record == nil {
		return state.Snapshot.Baseline(), false
	}

	return Sample{
		SleepHours:   record.SleepHours,
		SleepQuality: float64(record.SleepQuality),
		FatigueLevel: float64(record.FatigueLevel),
	}, true
}

// OrganizationSnapshot fans the projection logic out across all teams.
// Teams without check-ins are excluded from the heatmap.
func (s *Service) OrganizationSnapshot(ctx context.Context) (*OrgSnapshot, error) {
	state, err := s.cache.EnsureFresh(ctx)
	if err != nil {
		return nil, err
	}

	orgProjection := state.Predict(state.Snapshot.Baseline())

	teams, err := s.teams.ListTeams(ctx)
	if err != nil {
		return nil, err
	}

	heatmap := make([]TeamHeat, 0, len(teams))
	for _, team := range teams {
		checkins, err := s.source.FetchForTeam(ctx, team.ID)
		if err != nil {
			return nil, err
		}
		if len(checkins) == 0 {
			continue
		}

		var stress, focus float64
		for _, c := range checkins {
			stress += float64(c.StressLevel)
			focus += float64(c.FocusLevel)
		}
		n := float64(len(checkins))
		stressAvg, focusAvg := stress/n, focus/n

		heatmap = append(heatmap, TeamHeat{
			TeamID:          team.ID,
			TeamName:        team.Name,
			StressRisk:      round1(stressAvg),
			FocusScore:      round1(focusAvg),
			RecommendedMode: recommendMode(stressAvg, focusAvg),
		})
	}

	stressAverage := orgProjection.Stress
	if len(heatmap) > 0 {
		sum := 0.0
		for _, h := range heatmap {
			sum += h.StressRisk
		}
		stressAverage = sum / float64(len(heatmap))
	}

	return &OrgSnapshot{
		TrainedAt:     state.TrainedAtPtr(),
		DatasetSize:   state.DatasetSize(),
		OrgProjection: orgProjection,
		Confidence:    confidence(state.DatasetSize()),
		StressAverage: stressAverage,
		TeamHeatmap:   heatmap,
		TopSignals:    topSignals(state.Snapshot),
	}, nil
}

// AssessBurnout classifies an externally aggregated feature vector.
func (s *Service) AssessBurnout(f FeatureVector) RiskAssessment {
	return AssessBurnout(f)
}

// DashboardStats returns the flat stress/focus averages over the current
// snapshot for the manager dashboard header.
func (s *Service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	state, err := s.cache.EnsureFresh(ctx)
	if err != nil {
		return nil, err
	}

	stress, focus := state.Snapshot.Means()
	return &DashboardStats{StressAverage: stress, FocusAverage: focus}, nil
}

// recommendMode picks the operating mode for a stress/focus pair.
func recommendMode(stress, focus float64) string {
	if stress > 70 {
		return ModeGuidedPause
	}
	if focus > 75 {
		return ModeMicroLearning
	}
	return ModeHighPerformance
}

// confidence derives the evidence measure from the dataset size,
// saturating at 100.
func confidence(datasetSize int) int {
	if datasetSize <= 0 {
		return 0
	}
	capped := datasetSize
	if capped > confidenceSaturation {
		capped = confidenceSaturation
	}
	return int(math.Round(float64(capped) / confidenceSaturation * 100))
}

// suggestedActions attaches concrete interventions to a projection.
func suggestedActions(p Projection) []SuggestedAction {
	var actions []SuggestedAction
	if p.Stress >= 70 {
		actions = append(actions, SuggestedAction{
			Title:       "Guided pause",
			Description: "4-7-8 breathing and a calming playlist.",
		})
	}
	if p.Focus < 55 {
		actions = append(actions, SuggestedAction{
			Title:       "Green pomodoro sprint",
			Description: "15 minutes under the natural-light protocol.",
		})
	}
	if len(actions) == 0 {
		actions = append(actions, SuggestedAction{
			Title:       "Turbo micro-learning",
			Description: "Unlock the suggested sustainable mission.",
		})
	}
	return actions
}

// topSignals reports the prevalence of each fixed indicator across the
// snapshot. An empty snapshot reports every indicator at zero impact.
func topSignals(snapshot *FeatureSnapshot) []Signal {
	total := snapshot.Size()

	signals := make([]Signal, 0, len(signalDefs))
	for _, def := range signalDefs {
		impact := 0
		if total > 0 {
			impact = int(float64(snapshot.CountWhere(def.pred)) / float64(total) * 100)
		}
		signals = append(signals, Signal{Label: def.label, Impact: impact, Action: def.action})
	}
	return signals
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
