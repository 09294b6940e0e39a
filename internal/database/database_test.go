package database_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/srsbot/internal/database"
	"github.com/example/srsbot/internal/lesson"
	"github.com/example/srsbot/pkg/models"
)

var (
	_ lesson.ProfileStore      = (*database.UserRepository)(nil)
	_ lesson.ContentRepository = (*database.ContentRepository)(nil)
)

var t0 = time.Date(2026, 6, 1, 7, 30, 0, 0, time.UTC)

func openDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Connect(context.Background(), database.DriverSQLite, filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestConnect_EnablesForeignKeysAndIsIdempotent(t *testing.T) {
	db := openDB(t)

	var fk int
	require.NoError(t, db.Get(&fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk)
	assert.NoError(t, database.Migrate(context.Background(), db))
}

func TestUserRepository_UpdateLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := database.NewUserRepository(openDB(t))

	p := models.NewProgression(1001, t0)
	p.Next["radical"] = 2
	p.Records[models.ItemRef{Kind: "radical", ID: "一"}] = models.SRSRecord{}
	p.Queues["jp"] = []models.QueuedLesson{{Kind: "radical", ItemID: "一", Mode: models.ModeTeach, DueAt: t0}}
	require.NoError(t, repo.CreateUser(ctx, p))
	assert.ErrorIs(t, repo.CreateUser(ctx, p), models.ErrAlreadyExists)

	got, err := repo.GetUser(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	u := models.NewUserUpdate()
	u.SetRecord(models.ItemRef{Kind: "radical", ID: "一"}, models.SRSRecord{Level: 1, LevelOld: 1})
	u.SetRecord(models.ItemRef{Kind: "kanji", ID: "日"}, models.SRSRecord{Level: 0, Incorrect: 2})
	u.Next["kanji"] = 2
	u.Queues["jp"] = []models.QueuedLesson{
		{Kind: "kanji", ItemID: "日", Mode: models.ModeTeach, DueAt: t0},
		{Kind: "radical", ItemID: "一", Mode: models.ModeTeach, DueAt: t0.Add(4 * time.Hour)},
	}
	u.SetXP(7, 10, 1)
	bonus := t0.Add(24 * time.Hour)
	u.NextBonus = &bonus
	require.NoError(t, repo.ApplyUserUpdate(ctx, 1001, u))

	want := p.Clone()
	want.Apply(u)
	got, err = repo.GetUser(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	partial := models.NewUserUpdate()
	partial.Queues["jp"] = nil
	require.NoError(t, repo.ApplyUserUpdate(ctx, 1001, partial))
	got, err = repo.GetUser(ctx, 1001)
	require.NoError(t, err)
	assert.Empty(t, got.Queues["jp"])
	assert.Equal(t, 7, got.XP, "fields absent from the update are kept")
}

func TestUserRepository_UnknownUserWritesNothing(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	repo := database.NewUserRepository(db)

	u := models.NewUserUpdate()
	u.Next["radical"] = 2
	assert.ErrorIs(t, repo.ApplyUserUpdate(ctx, 5, u), models.ErrNotFound)

	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM tier_counters"))
	assert.Zero(t, n)

	_, err := repo.GetUser(ctx, 5)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRepository_ListAndNotificationHour(t *testing.T) {
	ctx := context.Background()
	repo := database.NewUserRepository(openDB(t))
	for _, id := range []int64{30, 10, 20} {
		require.NoError(t, repo.CreateUser(ctx, models.NewProgression(id, t0)))
	}

	ids, err := repo.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, ids)

	hour := 18
	require.NoError(t, repo.ApplyUserUpdate(ctx, 20, &models.UserUpdate{NotificationHour: &hour}))
	p, err := repo.GetUser(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, 18, p.NotificationHour)
	assert.Equal(t, 10, p.XPMax, "untouched fields keep their values")
}

func TestContentRepository(t *testing.T) {
	ctx := context.Background()
	repo := database.NewContentRepository(openDB(t))

	sun := models.ContentItem{
		Kind: "kanji",
		ID:   "日",
		Tier: 1,
		Answers: map[models.Facet][]string{
			models.FacetMeaning: {"sun", "day"},
			models.FacetOnyomi:  {"にち"},
		},
		Details: map[string]string{"radicals": "日"},
	}
	moon := models.ContentItem{Kind: "kanji", ID: "月", Tier: 1, Answers: map[models.Facet][]string{models.FacetMeaning: {"moon"}}}
	require.NoError(t, repo.SaveItems(ctx, []models.ContentItem{sun, moon}))
	require.NoError(t, repo.DeclareTier(ctx, "radical", 3))

	got, err := repo.GetItem(ctx, "kanji", "日")
	require.NoError(t, err)
	assert.Equal(t, sun, got)

	ids, err := repo.TierMembers(ctx, "kanji", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"日", "月"}, ids)

	ids, err = repo.TierMembers(ctx, "radical", 3)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = repo.TierMembers(ctx, "kanji", 2)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = repo.GetItem(ctx, "kanji", "火")
	assert.ErrorIs(t, err, models.ErrNotFound)

	moon.Tier = 2
	require.NoError(t, repo.SaveItems(ctx, []models.ContentItem{moon}))
	ids, err = repo.TierMembers(ctx, "kanji", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"日"}, ids)

	tiers, err := repo.Tiers(ctx, "kanji")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, tiers)
}
