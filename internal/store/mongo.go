package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/accessmap/gateway/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	reviewsCollection   = "reviews"
	summariesCollection = "place_summaries"
)

// MongoStore keeps reviews and cached summaries as documents. Summaries are
// keyed by place id in _id.
type MongoStore struct {
	reviews   *mongo.Collection
	summaries *mongo.Collection
	now       func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		reviews:   db.Collection(reviewsCollection),
		summaries: db.Collection(summariesCollection),
		now:       time.Now,
	}
}

// EnsureIndexes creates the (place_id, created_at) index the review query needs.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.reviews.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "place_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("idx_reviews_place_created"),
	})
	if err != nil {
		return fmt.Errorf("create review index: %w", err)
	}
	return nil
}

func (s *MongoStore) QueryReviews(ctx context.Context, placeID string, limit int) ([]models.ReviewModel, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.reviews.Find(ctx, bson.M{"place_id": placeID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer cur.Close(ctx)

	rows := make([]models.ReviewModel, 0)
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	return rows, nil
}

func (s *MongoStore) CreateReview(ctx context.Context, review *models.ReviewModel) error {
	if review.ID == "" {
		review.ID = models.NewID()
	}
	if review.CreatedAt == nil {
		now := models.Millis(s.now().UTC())
		review.CreatedAt = &now
	}
	if _, err := s.reviews.InsertOne(ctx, review); err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (s *MongoStore) GetCachedSummary(ctx context.Context, placeID string) (*models.PlaceSummaryModel, error) {
	var rec models.PlaceSummaryModel
	err := s.summaries.FindOne(ctx, bson.M{"_id": placeID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}
	return &rec, nil
}

// UpsertCachedSummary merges the summary fields into the place document.
func (s *MongoStore) UpsertCachedSummary(ctx context.Context, record *models.PlaceSummaryModel) error {
	updatedAt := models.Millis(s.now().UTC())
	set := bson.M{
		"summary":                 record.Summary,
		"model":                   record.Model,
		"updated_at":              updatedAt,
		"source_review_count":     record.SourceReviewCount,
		"source_latest_review_at": nil,
	}
	if record.SourceLatestReviewAt != nil {
		set["source_latest_review_at"] = models.Millis(record.SourceLatestReviewAt.UTC())
	}

	_, err := s.summaries.UpdateOne(ctx,
		bson.M{"_id": record.PlaceID},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	record.UpdatedAt = updatedAt
	return nil
}
