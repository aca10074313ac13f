package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/accessmap/gateway/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps reviews and cached summaries in a relational database.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

// QueryReviews returns up to limit reviews of a place, newest first. Rows
// without a timestamp sort last.
func (s *GormStore) QueryReviews(ctx context.Context, placeID string, limit int) ([]models.ReviewModel, error) {
	var rows []models.ReviewModel
	err := s.db.WithContext(ctx).
		Where("place_id = ?", placeID).
		Order("created_at IS NULL, created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	return rows, nil
}

// CreateReview inserts a review, stamping CreatedAt when the caller left it empty.
func (s *GormStore) CreateReview(ctx context.Context, review *models.ReviewModel) error {
	if review.CreatedAt == nil {
		now := models.Millis(s.now().UTC())
		review.CreatedAt = &now
	}
	if err := s.db.WithContext(ctx).Create(review).Error; err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (s *GormStore) GetCachedSummary(ctx context.Context, placeID string) (*models.PlaceSummaryModel, error) {
	var rec models.PlaceSummaryModel
	err := s.db.WithContext(ctx).Where("place_id = ?", placeID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}
	return &rec, nil
}

// UpsertCachedSummary writes the summary columns of a place, leaving any other
// column of an existing row untouched.
func (s *GormStore) UpsertCachedSummary(ctx context.Context, record *models.PlaceSummaryModel) error {
	rec := *record
	rec.UpdatedAt = models.Millis(s.now().UTC())
	if rec.SourceLatestReviewAt != nil {
		latest := models.Millis(rec.SourceLatestReviewAt.UTC())
		rec.SourceLatestReviewAt = &latest
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "place_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"summary", "model", "updated_at", "source_review_count", "source_latest_review_at",
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	record.UpdatedAt = rec.UpdatedAt
	return nil
}
