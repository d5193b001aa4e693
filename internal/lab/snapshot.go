package lab

import "time"

// FeatureSnapshot is an immutable capture of the telemetry table at one
// instant. Refreshes supersede a snapshot with a new one; nothing mutates
// rows after capture.
type FeatureSnapshot struct {
	rows       []CheckInRecord
	capturedAt time.Time
}

// NewFeatureSnapshot captures rows into a snapshot. The input slice is
// copied so later mutation by the caller cannot leak in.
func NewFeatureSnapshot(rows []CheckInRecord, capturedAt time.Time) *FeatureSnapshot {
	copied := make([]CheckInRecord, len(rows))
	copy(copied, rows)
	return &FeatureSnapshot{rows: copied, capturedAt: capturedAt}
}

// Size returns the number of captured rows.
func (s *FeatureSnapshot) Size() int {
	if s == nil {
		return 0
	}
	return len(s.rows)
}

// CapturedAt returns the capture instant.
func (s *FeatureSnapshot) CapturedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.capturedAt
}

// Rows exposes the captured rows. Callers must treat the slice as
// read-only.
func (s *FeatureSnapshot) Rows() []CheckInRecord {
	if s == nil {
		return nil
	}
	return s.rows
}

// Baseline returns the organizational baseline sample: the mean of sleep
// hours, sleep quality and fatigue across the snapshot. An empty snapshot
// yields the zero sample.
func (s *FeatureSnapshot) Baseline() Sample {
	if s.Size() == 0 {
		return Sample{}
	}

	var sleep, quality, fatigue float64
	for _, r := range s.rows {
		sleep += r.SleepHours
		quality += float64(r.SleepQuality)
		fatigue += float64(r.FatigueLevel)
	}

	n := float64(len(s.rows))
	return Sample{
		SleepHours:   sleep / n,
		SleepQuality: quality / n,
		FatigueLevel: fatigue / n,
	}
}

// Means returns the mean stress and focus levels across the snapshot.
func (s *FeatureSnapshot) Means() (stress, focus float64) {
	if s.Size() == 0 {
		return 0, 0
	}

	for _, r := range s.rows {
		stress += float64(r.StressLevel)
		focus += float64(r.FocusLevel)
	}

	n := float64(len(s.rows))
	return stress / n, focus / n
}

// CountWhere returns how many snapshot rows satisfy the predicate.
func (s *FeatureSnapshot) CountWhere(pred func(CheckInRecord) bool) int {
	count := 0
	for _, r := range s.Rows() {
		if pred(r) {
			count++
		}
	}
	return count
}
