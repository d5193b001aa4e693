package privacy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalis-labs/vitalis-pulse/internal/database"
)

func newTestService(t *testing.T, retentionDays int) (*PrivacyService, *database.Repository) {
	t.Helper()

	db, err := database.NewDB(database.InMemory)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := database.NewRepository(db)
	return NewService(repo, retentionDays), repo
}

func TestAnonymizeIDIsStableAndOpaque(t *testing.T) {
	service, _ := newTestService(t, 30)

	a := service.AnonymizeID("user-42")
	b := service.AnonymizeID("user-42")
	c := service.AnonymizeID("user-43")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
	assert.NotContains(t, a, "user-42")
}

func TestCleanupExpiredDeletesOldCheckIns(t *testing.T) {
	service, repo := newTestService(t, 30)
	ctx := context.Background()

	team := database.NewTeam("Engineering")
	require.NoError(t, repo.CreateTeam(ctx, team))
	user := database.NewUser("ana@example.com", "Ana", team.ID)
	require.NoError(t, repo.UpsertUser(ctx, user))

	old := database.NewCheckIn(user.ID, team.ID, 7, 7, 30, 40, 60)
	old.CreatedAt = time.Now().AddDate(0, 0, -60)
	require.NoError(t, repo.SaveCheckIn(ctx, old))

	recent := database.NewCheckIn(user.ID, team.ID, 7, 7, 30, 40, 60)
	require.NoError(t, repo.SaveCheckIn(ctx, recent))

	deleted, err := service.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestRetentionDefaultsWhenUnset(t *testing.T) {
	service, _ := newTestService(t, 0)

	info := service.GetDataRetentionInfo()
	assert.Equal(t, DefaultRetentionDays, info["checkin_retention_days"])
}
