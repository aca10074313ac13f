package store

import (
	"context"
	"testing"
	"time"

	"github.com/accessmap/gateway/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("query reviews decodes and sorts server side", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB)
		ns := mt.DB.Name() + "." + reviewsCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "r2"},
				{Key: "place_id", Value: "P1"},
				{Key: "text", Value: "ramp at side door"},
				{Key: "created_at", Value: primitive.NewDateTimeFromTime(time.Unix(200, 0))},
			},
			bson.D{
				{Key: "_id", Value: "r1"},
				{Key: "place_id", Value: "P1"},
				{Key: "text", Value: "  "},
				{Key: "created_at", Value: nil},
			},
		))

		rows, err := s.QueryReviews(context.Background(), "P1", 50)
		require.NoError(mt, err)
		require.Len(mt, rows, 2)
		assert.Equal(mt, "r2", rows[0].ID)
		require.NotNil(mt, rows[0].CreatedAt)
		assert.True(mt, rows[0].CreatedAt.Equal(time.Unix(200, 0)))
		assert.Nil(mt, rows[1].CreatedAt)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, int64(50), cmd.Lookup("limit").AsInt64())
		sort := cmd.Lookup("sort").Document()
		assert.Equal(mt, int64(-1), sort.Lookup("created_at").AsInt64())
		assert.Equal(mt, int64(-1), sort.Lookup("_id").AsInt64())
	})

	mt.Run("missing summary is not an error", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB)
		ns := mt.DB.Name() + "." + summariesCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		rec, err := s.GetCachedSummary(context.Background(), "P1")
		require.NoError(mt, err)
		assert.Nil(mt, rec)
	})

	mt.Run("cached summary decodes", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB)
		ns := mt.DB.Name() + "." + summariesCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "P1"},
			{Key: "summary", Value: "Level entry."},
			{Key: "model", Value: "gpt-4o-mini"},
			{Key: "updated_at", Value: primitive.NewDateTimeFromTime(time.Unix(500, 0))},
			{Key: "source_review_count", Value: int32(4)},
			{Key: "source_latest_review_at", Value: primitive.NewDateTimeFromTime(time.Unix(400, 0))},
		}))

		rec, err := s.GetCachedSummary(context.Background(), "P1")
		require.NoError(mt, err)
		require.NotNil(mt, rec)
		assert.Equal(mt, "P1", rec.PlaceID)
		assert.Equal(mt, "Level entry.", rec.Summary)
		assert.Equal(mt, 4, rec.SourceReviewCount)
		require.NotNil(mt, rec.SourceLatestReviewAt)
		assert.True(mt, rec.SourceLatestReviewAt.Equal(time.Unix(400, 0)))
	})

	mt.Run("upsert sets fields with upsert flag", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB)
		s.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
		))

		rec := &models.PlaceSummaryModel{PlaceID: "P1", Summary: "ok", Model: "m", SourceReviewCount: 2}
		require.NoError(mt, s.UpsertCachedSummary(context.Background(), rec))
		assert.True(mt, rec.UpdatedAt.Equal(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)))

		cmd := mt.GetStartedEvent().Command
		update := cmd.Lookup("updates").Array().Index(0).Value().Document()
		assert.True(mt, update.Lookup("upsert").Boolean())
		assert.Equal(mt, "P1", update.Lookup("q", "_id").StringValue())
		set := update.Lookup("u", "$set").Document()
		assert.Equal(mt, "ok", set.Lookup("summary").StringValue())
		assert.Equal(mt, int64(2), set.Lookup("source_review_count").AsInt64())
	})

	mt.Run("create review assigns id and timestamp", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB)
		s.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		review := &models.ReviewModel{PlaceID: "P1", Text: "narrow aisle"}
		require.NoError(mt, s.CreateReview(context.Background(), review))
		assert.NotEmpty(mt, review.ID)
		require.NotNil(mt, review.CreatedAt)
	})

	mt.Run("write error surfaces", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 2, Message: "bad value",
		}))

		err := s.UpsertCachedSummary(context.Background(), &models.PlaceSummaryModel{PlaceID: "P1", Summary: "x"})
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "upsert summary")
	})
}
