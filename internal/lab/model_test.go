package lab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Rows with an exact linear structure: the high-stress label equals
// fatigue/100 and focus equals 10x sleep quality, so least squares must
// recover both relationships with zero residual.
func linearlyStructuredRows() []CheckInRecord {
	return []CheckInRecord{
		{SleepHours: 6, SleepQuality: 5, FatigueLevel: 0, StressLevel: 30, FocusLevel: 50},
		{SleepHours: 7, SleepQuality: 8, FatigueLevel: 100, StressLevel: 90, FocusLevel: 80},
		{SleepHours: 5, SleepQuality: 3, FatigueLevel: 0, StressLevel: 20, FocusLevel: 30},
		{SleepHours: 8, SleepQuality: 9, FatigueLevel: 100, StressLevel: 85, FocusLevel: 90},
		{SleepHours: 6.5, SleepQuality: 7, FatigueLevel: 0, StressLevel: 40, FocusLevel: 70},
	}
}

func TestLinearTrainerRecoversLinearRelationships(t *testing.T) {
	scorer, err := NewLinearTrainer().Train(linearlyStructuredRows())
	require.NoError(t, err)

	p := scorer.Predict(Sample{SleepHours: 7, SleepQuality: 8, FatigueLevel: 50})
	assert.InDelta(t, 50.0, p.Stress, 1e-6)
	assert.InDelta(t, 80.0, p.Focus, 1e-6)

	p = scorer.Predict(Sample{SleepHours: 6, SleepQuality: 4, FatigueLevel: 90})
	assert.InDelta(t, 90.0, p.Stress, 1e-6)
	assert.InDelta(t, 40.0, p.Focus, 1e-6)
}

func TestLinearTrainerEmptyRows(t *testing.T) {
	_, err := NewLinearTrainer().Train(nil)
	assert.ErrorIs(t, err, ErrDegenerateFit)
}

func TestLinearTrainerCollinearRows(t *testing.T) {
	// Identical rows leave the normal equations singular.
	rows := make([]CheckInRecord, 8)
	for i := range rows {
		rows[i] = CheckInRecord{SleepHours: 7, SleepQuality: 7, FatigueLevel: 40, StressLevel: 30, FocusLevel: 60}
	}

	_, err := NewLinearTrainer().Train(rows)
	assert.ErrorIs(t, err, ErrDegenerateFit)
}

func TestLinearModelClampsProjections(t *testing.T) {
	m := &LinearModel{
		stressWeights: [featureCount + 1]float64{2},  // raw output 2.0
		focusWeights:  [featureCount + 1]float64{-1}, // raw output -1.0
	}

	p := m.Predict(Sample{})
	assert.Equal(t, 100.0, p.Stress)
	assert.Equal(t, 0.0, p.Focus)
}

func TestHeuristicModelPredict(t *testing.T) {
	tests := []struct {
		name          string
		sample        Sample
		stress, focus float64
	}{
		{"rested", Sample{SleepHours: 6, SleepQuality: 10, FatigueLevel: 0}, 0, 100},
		{"exhausted", Sample{SleepHours: 0, SleepQuality: 0, FatigueLevel: 100}, 100, 0},
		{"middling", Sample{SleepHours: 4.5, SleepQuality: 5, FatigueLevel: 60}, 47.5, 52.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := HeuristicModel{}.Predict(tt.sample)
			assert.InDelta(t, tt.stress, p.Stress, 1e-9)
			assert.InDelta(t, tt.focus, p.Focus, 1e-9)
		})
	}
}

func TestHeuristicModelOutputsStayInBounds(t *testing.T) {
	samples := []Sample{
		{SleepHours: -5, SleepQuality: -3, FatigueLevel: 500},
		{SleepHours: 20, SleepQuality: 15, FatigueLevel: -50},
	}

	for _, s := range samples {
		p := HeuristicModel{}.Predict(s)
		assert.GreaterOrEqual(t, p.Stress, 0.0)
		assert.LessOrEqual(t, p.Stress, 100.0)
		assert.GreaterOrEqual(t, p.Focus, 0.0)
		assert.LessOrEqual(t, p.Focus, 100.0)
	}
}

func TestHeuristicTrainerNeverFails(t *testing.T) {
	scorer, err := NewHeuristicTrainer().Train(nil)
	require.NoError(t, err)

	p := scorer.Predict(Sample{SleepHours: 6, SleepQuality: 5, FatigueLevel: 70})
	assert.InDelta(t, 45.0, p.Stress, 1e-9)
	assert.InDelta(t, 55.0, p.Focus, 1e-9)
}
