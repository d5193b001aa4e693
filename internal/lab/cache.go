package lab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vitalis-labs/vitalis-pulse/internal/monitoring"
	"github.com/vitalis-labs/vitalis-pulse/internal/resilience"
)

// ErrSourceUnavailable reports that the check-in source could not be
// reached while the cache had no previous model to fall back on.
var ErrSourceUnavailable = errors.New("lab: check-in source unavailable")

// ModelState is the cache's published value: one consistent
// (snapshot, scorer, trainedAt) triple. States are replaced wholesale on
// refresh; a reader never sees a snapshot paired with a scorer fitted
// from a different snapshot.
type ModelState struct {
	TrainedAt time.Time
	Snapshot  *FeatureSnapshot
	Scorer    Scorer
}

// Trained reports whether a model has ever been fitted.
func (st *ModelState) Trained() bool {
	return st != nil && !st.TrainedAt.IsZero() && st.Scorer != nil
}

// DatasetSize returns the size of the current snapshot.
func (st *ModelState) DatasetSize() int {
	if st == nil {
		return 0
	}
	return st.Snapshot.Size()
}

// TrainedAtPtr returns the training instant, or nil when never trained.
func (st *ModelState) TrainedAtPtr() *time.Time {
	if st == nil || st.TrainedAt.IsZero() {
		return nil
	}
	t := st.TrainedAt
	return &t
}

// Predict applies the fitted scorer to a sample, falling back to the
// neutral projection when no model has ever been trained.
func (st *ModelState) Predict(s Sample) Projection {
	if !st.Trained() {
		return Projection{Stress: 50, Focus: 50}
	}
	p := st.Scorer.Predict(s)
	p.Stress = clamp(p.Stress, 0, 100)
	p.Focus = clamp(p.Focus, 0, 100)
	return p
}

func (st *ModelState) fresh(ttl time.Duration, now time.Time) bool {
	return st.Trained() && st.DatasetSize() > 0 && now.Sub(st.TrainedAt) < ttl
}

// CacheConfig holds the staleness policy of the model cache.
type CacheConfig struct {
	// TTL is the maximum model age before a refresh is forced.
	TTL time.Duration
	// MinTrainingRows is the snapshot size below which training is
	// skipped and the previous model kept.
	MinTrainingRows int
	// Retry bounds the fetch attempts against the check-in source.
	Retry resilience.RetryConfig
}

// DefaultCacheConfig returns the production staleness policy.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:             20 * time.Minute,
		MinTrainingRows: 5,
		Retry:           resilience.DefaultRetryConfig(),
	}
}

// ModelCache owns the current FeatureSnapshot and fitted model, enforces
// the staleness policy, and is the only component that reads the full
// telemetry set. One instance is shared process-wide.
type ModelCache struct {
	source  CheckInSource
	trainer Trainer
	config  CacheConfig
	metrics *monitoring.Metrics

	state atomic.Pointer[ModelState]
	group singleflight.Group
	now   func() time.Time
}

// NewModelCache creates a cache around a source and a training backend.
// metrics may be nil.
func NewModelCache(source CheckInSource, trainer Trainer, config CacheConfig, metrics *monitoring.Metrics) *ModelCache {
	return &ModelCache{
		source:  source,
		trainer: trainer,
		config:  config,
		metrics: metrics,
		now:     time.Now,
	}
}

// EnsureFresh returns a usable model state, refreshing from the source
// when the cached one is stale or missing. Overlapping callers collapse
// into a single in-flight refresh and share its result. A fetch failure
// is only escalated when the cache has never held a snapshot; otherwise
// the last good state keeps serving.
func (c *ModelCache) EnsureFresh(ctx context.Context) (*ModelState, error) {
	if st := c.state.Load(); st.fresh(c.config.TTL, c.now()) {
		return st, nil
	}

	v, err, shared := c.group.Do("refresh", func() (interface{}, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Model refresh shared with concurrent caller")
	}

	return v.(*ModelState), nil
}

// State returns the current state without triggering a refresh. It may be
// nil before the first successful refresh.
func (c *ModelCache) State() *ModelState {
	return c.state.Load()
}

// refresh fetches the full telemetry set, publishes a new snapshot, and
// retrains when enough rows are available.
func (c *ModelCache) refresh(ctx context.Context) (*ModelState, error) {
	now := c.now()

	// Another caller may have finished a refresh while we waited on the
	// flight group.
	prev := c.state.Load()
	if prev.fresh(c.config.TTL, now) {
		return prev, nil
	}

	var rows []CheckInRecord
	err := resilience.RetryWithConfig(ctx, c.config.Retry, func() error {
		fetched, ferr := c.source.FetchAll(ctx)
		if ferr != nil {
			return ferr
		}
		rows = fetched
		return nil
	})
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncrementRefreshFailure()
		}
		if prev == nil || prev.Snapshot == nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		slog.Warn("Check-in source unreachable, serving last good model",
			"error", err,
			"dataset_size", prev.DatasetSize(),
			"trained_at", prev.TrainedAt)
		return prev, nil
	}

	snapshot := NewFeatureSnapshot(rows, now)
	next := &ModelState{Snapshot: snapshot}
	if prev != nil {
		next.TrainedAt = prev.TrainedAt
		next.Scorer = prev.Scorer
	}

	if snapshot.Size() >= c.config.MinTrainingRows {
		scorer, terr := c.trainer.Train(snapshot.Rows())
		if terr != nil {
			slog.Warn("Training skipped, keeping previous model", "error", terr, "rows", snapshot.Size())
		} else {
			next.Scorer = scorer
			next.TrainedAt = now
			if c.metrics != nil {
				c.metrics.IncrementTraining()
			}
		}
	} else {
		slog.Info("Too few check-ins to retrain, keeping previous model",
			"rows", snapshot.Size(),
			"min_rows", c.config.MinTrainingRows)
	}

	c.state.Store(next)
	if c.metrics != nil {
		c.metrics.IncrementRefresh()
	}

	slog.Info("Model cache refreshed",
		"dataset_size", snapshot.Size(),
		"trained", next.Trained())

	return next, nil
}

// Stats reports the cache lifecycle for health endpoints.
func (c *ModelCache) Stats() map[string]interface{} {
	st := c.state.Load()
	stage := "empty"
	if st.Trained() {
		if st.fresh(c.config.TTL, c.now()) {
			stage = "trained"
		} else {
			stage = "stale"
		}
	}

	stats := map[string]interface{}{
		"stage":        stage,
		"dataset_size": st.DatasetSize(),
		"ttl_seconds":  c.config.TTL.Seconds(),
	}
	if t := st.TrainedAtPtr(); t != nil {
		stats["trained_at"] = t.Format(time.RFC3339)
	}
	return stats
}
