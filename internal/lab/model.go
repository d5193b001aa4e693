package lab

import (
	"errors"
	"math"
)

// Scorer maps a biometric sample to a stress/focus projection. Both
// implementations clamp their outputs to [0,100].
type Scorer interface {
	Predict(s Sample) Projection
}

// Trainer fits a Scorer from snapshot rows. The backend (trained model or
// heuristic) is chosen once at construction time; callers only ever see
// the Scorer interface.
type Trainer interface {
	Train(rows []CheckInRecord) (Scorer, error)
}

// ErrDegenerateFit is returned when the snapshot cannot support a fit
// (e.g. collinear features). The cache keeps serving its previous model.
var ErrDegenerateFit = errors.New("lab: degenerate training data")

const (
	stressLabelThreshold = 70  // stress >= 70 counts as a high-stress label
	featureCount         = 3   // sleep hours, sleep quality, fatigue
	projectionScale      = 100 // model outputs live in [0,1]
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LinearModel predicts stress likelihood and focus level with two linear
// regressions over (sleep hours, sleep quality, fatigue).
type LinearModel struct {
	stressWeights [featureCount + 1]float64 // bias first
	focusWeights  [featureCount + 1]float64
}

// Predict applies both regressions and scales into [0,100].
func (m *LinearModel) Predict(s Sample) Projection {
	x := [featureCount]float64{s.SleepHours, s.SleepQuality, s.FatigueLevel}

	stress := m.stressWeights[0]
	focus := m.focusWeights[0]
	for i, v := range x {
		stress += m.stressWeights[i+1] * v
		focus += m.focusWeights[i+1] * v
	}

	return Projection{
		Stress: clamp(stress, 0, 1) * projectionScale,
		Focus:  clamp(focus, 0, 1) * projectionScale,
	}
}

// LinearTrainer fits a LinearModel by ordinary least squares. The stress
// regression targets the binary high-stress label, the focus regression
// targets the normalized focus level.
type LinearTrainer struct{}

// NewLinearTrainer returns the trained-model backend.
func NewLinearTrainer() *LinearTrainer { return &LinearTrainer{} }

// Train fits both regressions against the snapshot rows.
func (t *LinearTrainer) Train(rows []CheckInRecord) (Scorer, error) {
	if len(rows) == 0 {
		return nil, ErrDegenerateFit
	}

	features := make([][featureCount + 1]float64, len(rows))
	stressTargets := make([]float64, len(rows))
	focusTargets := make([]float64, len(rows))

	for i, r := range rows {
		features[i] = [featureCount + 1]float64{1, r.SleepHours, float64(r.SleepQuality), float64(r.FatigueLevel)}
		if r.StressLevel >= stressLabelThreshold {
			stressTargets[i] = 1
		}
		focusTargets[i] = float64(r.FocusLevel) / projectionScale
	}

	stressW, err := leastSquares(features, stressTargets)
	if err != nil {
		return nil, err
	}
	focusW, err := leastSquares(features, focusTargets)
	if err != nil {
		return nil, err
	}

	return &LinearModel{stressWeights: stressW, focusWeights: focusW}, nil
}

// leastSquares solves the normal equations (X'X)w = X'y for a small fixed
// number of coefficients.
func leastSquares(x [][featureCount + 1]float64, y []float64) ([featureCount + 1]float64, error) {
	const n = featureCount + 1

	var xtx [n][n]float64
	var xty [n]float64
	for i := range x {
		for a := 0; a < n; a++ {
			xty[a] += x[i][a] * y[i]
			for b := 0; b < n; b++ {
				xtx[a][b] += x[i][a] * x[i][b]
			}
		}
	}

	// Gaussian elimination with partial pivoting.
	var w [n]float64
	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(xtx[row][col]) > math.Abs(xtx[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(xtx[pivot][col]) < 1e-12 {
			return w, ErrDegenerateFit
		}
		xtx[col], xtx[pivot] = xtx[pivot], xtx[col]
		xty[col], xty[pivot] = xty[pivot], xty[col]

		for row := col + 1; row < n; row++ {
			factor := xtx[row][col] / xtx[col][col]
			for k := col; k < n; k++ {
				xtx[row][k] -= factor * xtx[col][k]
			}
			xty[row] -= factor * xty[col]
		}
	}
	for col := n - 1; col >= 0; col-- {
		sum := xty[col]
		for k := col + 1; k < n; k++ {
			sum -= xtx[col][k] * w[k]
		}
		w[col] = sum / xtx[col][col]
	}

	return w, nil
}
