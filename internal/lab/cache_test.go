package lab

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalis-labs/vitalis-pulse/internal/resilience"
)

type fakeSource struct {
	mu      sync.Mutex
	rows    []CheckInRecord
	err     error
	fetches int32
	delay   time.Duration

	latest map[string]CheckInRecord
	teams  map[string][]CheckInRecord
}

func (f *fakeSource) FetchAll(ctx context.Context) ([]CheckInRecord, error) {
	atomic.AddInt32(&f.fetches, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeSource) FetchLatestForUser(ctx context.Context, userID string) (*CheckInRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.latest[userID]; ok {
		return &r, nil
	}
	return nil, nil
}

func (f *fakeSource) FetchForTeam(ctx context.Context, teamID string) ([]CheckInRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.teams[teamID], nil
}

func (f *fakeSource) fetchCount() int {
	return int(atomic.LoadInt32(&f.fetches))
}

func (f *fakeSource) setError(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fixedScorer struct {
	projection Projection
}

func (s fixedScorer) Predict(Sample) Projection { return s.projection }

type fakeTrainer struct {
	scorer Scorer
	err    error
	trains int
}

func (t *fakeTrainer) Train([]CheckInRecord) (Scorer, error) {
	t.trains++
	if t.err != nil {
		return nil, t.err
	}
	return t.scorer, nil
}

func testRows(n int) []CheckInRecord {
	rows := make([]CheckInRecord, n)
	for i := range rows {
		rows[i] = CheckInRecord{
			UserID:       "u1",
			SleepHours:   7,
			SleepQuality: 7,
			FatigueLevel: 30 + i,
			StressLevel:  40,
			FocusLevel:   60,
		}
	}
	return rows
}

func testCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:             20 * time.Minute,
		MinTrainingRows: 5,
		Retry:           resilience.RetryConfig{MaxAttempts: 1},
	}
}

func TestModelCacheRefreshesOnceWithinTTL(t *testing.T) {
	source := &fakeSource{rows: testRows(6)}
	trainer := &fakeTrainer{scorer: fixedScorer{Projection{Stress: 30, Focus: 70}}}
	cache := NewModelCache(source, trainer, testCacheConfig(), nil)

	ctx := context.Background()

	first, err := cache.EnsureFresh(ctx)
	require.NoError(t, err)
	second, err := cache.EnsureFresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, source.fetchCount())
	assert.Equal(t, 1, trainer.trains)
	assert.Same(t, first, second)
	assert.True(t, first.Trained())
	assert.Equal(t, 6, first.DatasetSize())
}

func TestModelCacheRefreshesAfterTTL(t *testing.T) {
	source := &fakeSource{rows: testRows(6)}
	trainer := &fakeTrainer{scorer: fixedScorer{Projection{Stress: 30, Focus: 70}}}
	cache := NewModelCache(source, trainer, testCacheConfig(), nil)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	ctx := context.Background()

	_, err := cache.EnsureFresh(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, source.fetchCount())

	now = now.Add(21 * time.Minute)

	state, err := cache.EnsureFresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, source.fetchCount())
	assert.Equal(t, now, state.TrainedAt)
}

func TestModelCacheSkipsTrainingBelowMinimum(t *testing.T) {
	source := &fakeSource{rows: testRows(4)}
	trainer := &fakeTrainer{scorer: fixedScorer{Projection{Stress: 30, Focus: 70}}}
	cache := NewModelCache(source, trainer, testCacheConfig(), nil)

	ctx := context.Background()

	state, err := cache.EnsureFresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, trainer.trains)
	assert.False(t, state.Trained())
	assert.Nil(t, state.TrainedAtPtr())

	// Untrained states never become fresh, so the next call fetches again.
	_, err = cache.EnsureFresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, source.fetchCount())

	// And predictions degrade to the neutral projection.
	assert.Equal(t, Projection{Stress: 50, Focus: 50}, state.Predict(Sample{}))
}

func TestModelCacheServesStaleOnWarmFetchFailure(t *testing.T) {
	source := &fakeSource{rows: testRows(6)}
	trainer := &fakeTrainer{scorer: fixedScorer{Projection{Stress: 30, Focus: 70}}}
	cache := NewModelCache(source, trainer, testCacheConfig(), nil)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	ctx := context.Background()

	warm, err := cache.EnsureFresh(ctx)
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	source.setError(errors.New("dial tcp: connection refused"))

	stale, err := cache.EnsureFresh(ctx)
	require.NoError(t, err, "warm cache must absorb fetch failures")
	assert.Same(t, warm, stale)
	assert.Equal(t, 6, stale.DatasetSize())
}

func TestModelCacheColdFetchFailureEscalates(t *testing.T) {
	source := &fakeSource{err: errors.New("dial tcp: connection refused")}
	trainer := &fakeTrainer{scorer: fixedScorer{}}
	cache := NewModelCache(source, trainer, testCacheConfig(), nil)

	_, err := cache.EnsureFresh(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Nil(t, cache.State())
}

func TestModelCacheKeepsPreviousModelOnTrainingError(t *testing.T) {
	source := &fakeSource{rows: testRows(6)}
	trainer := &fakeTrainer{scorer: fixedScorer{Projection{Stress: 30, Focus: 70}}}
	cache := NewModelCache(source, trainer, testCacheConfig(), nil)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	ctx := context.Background()

	first, err := cache.EnsureFresh(ctx)
	require.NoError(t, err)
	trainedAt := first.TrainedAt

	now = now.Add(25 * time.Minute)
	trainer.err = ErrDegenerateFit

	second, err := cache.EnsureFresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, trainedAt, second.TrainedAt, "failed training must not bump TrainedAt")
	assert.Equal(t, first.Scorer, second.Scorer)
	assert.Equal(t, 6, second.DatasetSize())
}

func TestModelCacheCollapsesConcurrentRefreshes(t *testing.T) {
	source := &fakeSource{rows: testRows(10), delay: 50 * time.Millisecond}
	trainer := &fakeTrainer{scorer: fixedScorer{Projection{Stress: 30, Focus: 70}}}
	cache := NewModelCache(source, trainer, testCacheConfig(), nil)

	ctx := context.Background()

	var wg sync.WaitGroup
	states := make([]*ModelState, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			state, err := cache.EnsureFresh(ctx)
			assert.NoError(t, err)
			states[i] = state
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, source.fetchCount(), "concurrent callers must share one refresh")
	for _, state := range states {
		assert.Same(t, states[0], state)
	}
}

func TestModelCacheStatsLifecycle(t *testing.T) {
	source := &fakeSource{rows: testRows(6)}
	trainer := &fakeTrainer{scorer: fixedScorer{Projection{Stress: 30, Focus: 70}}}
	cache := NewModelCache(source, trainer, testCacheConfig(), nil)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	assert.Equal(t, "empty", cache.Stats()["stage"])

	_, err := cache.EnsureFresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "trained", cache.Stats()["stage"])

	now = now.Add(time.Hour)
	assert.Equal(t, "stale", cache.Stats()["stage"])
}
