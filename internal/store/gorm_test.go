package store

import (
	"context"
	"testing"
	"time"

	"github.com/accessmap/gateway/internal/database"
	"github.com/accessmap/gateway/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestGormStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every pooled connection to :memory: would get its own empty database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return NewGormStore(db)
}

func at(sec int64) *time.Time {
	t := time.Unix(sec, 0).UTC()
	return &t
}

func TestGormStore_QueryReviewsOrdering(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	seed := []models.ReviewModel{
		{ID: "a", PlaceID: "P1", Text: "old", CreatedAt: at(100)},
		{ID: "b", PlaceID: "P1", Text: "tie low", CreatedAt: at(300)},
		{ID: "c", PlaceID: "P1", Text: "tie high", CreatedAt: at(300)},
		{ID: "d", PlaceID: "P1", Text: "imported"},
		{ID: "e", PlaceID: "P1", Text: "middle", CreatedAt: at(200)},
		{ID: "f", PlaceID: "P2", Text: "other place", CreatedAt: at(999)},
	}
	for i := range seed {
		require.NoError(t, s.db.Create(&seed[i]).Error)
	}

	rows, err := s.QueryReviews(ctx, "P1", 50)
	require.NoError(t, err)
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"c", "b", "e", "a", "d"}, ids)
	assert.Nil(t, rows[4].CreatedAt)

	rows, err = s.QueryReviews(ctx, "P1", 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = s.QueryReviews(ctx, "missing", 50)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGormStore_CreateReviewStampsDefaults(t *testing.T) {
	s := newTestGormStore(t)
	fixed := time.Date(2026, 5, 1, 8, 30, 0, 123456789, time.UTC)
	s.now = func() time.Time { return fixed }

	review := &models.ReviewModel{PlaceID: "P1", Text: "step-free entrance"}
	require.NoError(t, s.CreateReview(context.Background(), review))

	assert.NotEmpty(t, review.ID)
	require.NotNil(t, review.CreatedAt)
	assert.True(t, review.CreatedAt.Equal(models.Millis(fixed)))

	rows, err := s.QueryReviews(context.Background(), "P1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, review.ID, rows[0].ID)
}

func TestGormStore_SummaryRoundTrip(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()
	s.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }

	got, err := s.GetCachedSummary(ctx, "P1")
	require.NoError(t, err)
	assert.Nil(t, got)

	latest := time.Date(2026, 4, 30, 18, 0, 0, 987654321, time.UTC)
	rec := &models.PlaceSummaryModel{
		PlaceID:              "P1",
		Summary:              "Accessible entrance.",
		Model:                "gpt-4o-mini",
		SourceReviewCount:    3,
		SourceLatestReviewAt: &latest,
	}
	require.NoError(t, s.UpsertCachedSummary(ctx, rec))

	got, err = s.GetCachedSummary(ctx, "P1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Accessible entrance.", got.Summary)
	assert.Equal(t, 3, got.SourceReviewCount)
	require.NotNil(t, got.SourceLatestReviewAt)
	assert.True(t, got.SourceLatestReviewAt.Equal(models.Millis(latest)))
	assert.True(t, got.UpdatedAt.Equal(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)))
}

func TestGormStore_UpsertOverwritesExisting(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertCachedSummary(ctx, &models.PlaceSummaryModel{
		PlaceID: "P1", Summary: "first", Model: "m1", SourceReviewCount: 1, SourceLatestReviewAt: at(100),
	}))
	s.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	rec := &models.PlaceSummaryModel{PlaceID: "P1", Summary: "second", Model: "m2", SourceReviewCount: 2}
	require.NoError(t, s.UpsertCachedSummary(ctx, rec))
	assert.True(t, rec.UpdatedAt.Equal(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))

	got, err := s.GetCachedSummary(ctx, "P1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Summary)
	assert.Equal(t, "m2", got.Model)
	assert.Equal(t, 2, got.SourceReviewCount)
	assert.Nil(t, got.SourceLatestReviewAt)

	var n int64
	require.NoError(t, s.db.Model(&models.PlaceSummaryModel{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}
