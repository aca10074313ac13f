package store

import (
	"context"

	"github.com/accessmap/gateway/internal/models"
	"github.com/accessmap/gateway/internal/modules/summary"
)

// Store is the persistence surface shared by the summary and review modules.
type Store interface {
	summary.ReviewStore
	summary.SummaryStore
	CreateReview(ctx context.Context, review *models.ReviewModel) error
}

var (
	_ Store = (*GormStore)(nil)
	_ Store = (*MongoStore)(nil)
)
