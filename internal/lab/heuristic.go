package lab

// HeuristicModel is the rule-based fallback Scorer. It needs no fitting
// and mirrors the weighting intuition of the trained backend: short or
// poor sleep and high fatigue push stress up and focus down.
type HeuristicModel struct{}

// Predict derives a projection directly from the sample.
func (HeuristicModel) Predict(s Sample) Projection {
	sleepDeficit := 0.0
	if s.SleepHours < healthySleepHours {
		sleepDeficit = (healthySleepHours - s.SleepHours) / healthySleepHours * 100
	}
	qualityDeficit := clamp(10-s.SleepQuality, 0, 10) * 10

	stress := 0.5*s.FatigueLevel + 0.3*sleepDeficit + 0.2*qualityDeficit
	focus := 0.5*(100-s.FatigueLevel) + 0.3*(100-sleepDeficit) + 0.2*(s.SleepQuality*10)

	return Projection{
		Stress: clamp(stress, 0, 100),
		Focus:  clamp(focus, 0, 100),
	}
}

// HeuristicTrainer selects the heuristic backend. Train never fails; the
// returned Scorer is stateless.
type HeuristicTrainer struct{}

// NewHeuristicTrainer returns the heuristic backend.
func NewHeuristicTrainer() *HeuristicTrainer { return &HeuristicTrainer{} }

// Train ignores the rows and hands back the rule-based Scorer.
func (t *HeuristicTrainer) Train(_ []CheckInRecord) (Scorer, error) {
	return HeuristicModel{}, nil
}
