package summary

import (
	"context"
	"strings"
	"time"

	"github.com/accessmap/gateway/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultFetchLimit  = 50
	DefaultPromptLimit = 20
	DefaultModel       = "gpt-4o-mini"

	lockKeyPrefix = "summary:"
)

// ReviewStore returns the most recent reviews of a place, newest first, ties
// broken by id descending.
type ReviewStore interface {
	QueryReviews(ctx context.Context, placeID string, limit int) ([]models.ReviewModel, error)
}

// SummaryStore persists one cached summary per place. GetCachedSummary returns
// (nil, nil) when the place has none. UpsertCachedSummary merges the record into
// any existing one and stamps UpdatedAt with the store's clock.
type SummaryStore interface {
	GetCachedSummary(ctx context.Context, placeID string) (*models.PlaceSummaryModel, error)
	UpsertCachedSummary(ctx context.Context, record *models.PlaceSummaryModel) error
}

// Generator turns a prompt into text with the given model.
type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// Locker serializes regeneration per key. Distinct keys never block each other.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Result is what GetSummary returns to callers.
type Result struct {
	PlaceID           string     `json:"place_id"`
	Summary           string     `json:"summary"`
	SourceReviewCount int        `json:"source_review_count"`
	Cached            bool       `json:"cached"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// Config tunes a Manager. Zero values fall back to the defaults above; a nil
// Locker lets concurrent misses for one place race (last write wins).
type Config struct {
	Model       string
	FetchLimit  int
	PromptLimit int
	Locker      Locker
	Metrics     *Metrics
	Logger      *zap.Logger
}

// Manager decides whether a cached place summary still matches the current
// reviews and regenerates it when it does not.
type Manager struct {
	reviews   ReviewStore
	summaries SummaryStore
	gen       Generator
	cfg       Config
	log       *zap.Logger
}

func NewManager(reviews ReviewStore, summaries SummaryStore, gen Generator, cfg Config) *Manager {
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = DefaultFetchLimit
	}
	if cfg.PromptLimit <= 0 {
		cfg.PromptLimit = DefaultPromptLimit
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{reviews: reviews, summaries: summaries, gen: gen, cfg: cfg, log: log}
}

// GetSummary returns the accessibility summary of a place, generating and
// caching a new one when the reviews changed since the last generation.
func (m *Manager) GetSummary(ctx context.Context, placeID string) (*Result, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, ErrInvalidInput
	}

	res, outcome, err := m.getSummary(ctx, placeID)
	if err != nil {
		m.cfg.Metrics.observeRequest(outcomeError)
		return nil, err
	}
	m.cfg.Metrics.observeRequest(outcome)
	return res, nil
}

func (m *Manager) getSummary(ctx context.Context, placeID string) (*Result, string, error) {
	reviews, err := m.reviews.QueryReviews(ctx, placeID, m.cfg.FetchLimit)
	if err != nil {
		return nil, "", dependencyError("query reviews", err)
	}

	c := buildCorpus(reviews)
	if c.empty() {
		return &Result{PlaceID: placeID, Summary: "", SourceReviewCount: 0, Cached: true}, outcomeEmpty, nil
	}

	cached, err := m.summaries.GetCachedSummary(ctx, placeID)
	if err != nil {
		return nil, "", dependencyError("load cached summary", err)
	}
	if validFor(cached, c.fp) {
		return hitResult(placeID, cached), outcomeHit, nil
	}

	if m.cfg.Locker != nil {
		unlock, err := m.cfg.Locker.Lock(ctx, lockKeyPrefix+placeID)
		if err != nil {
			return nil, "", dependencyError("lock place", err)
		}
		defer unlock()

		// Another caller may have regenerated while we waited.
		cached, err = m.summaries.GetCachedSummary(ctx, placeID)
		if err != nil {
			return nil, "", dependencyError("load cached summary", err)
		}
		if validFor(cached, c.fp) {
			return hitResult(placeID, cached), outcomeHit, nil
		}
	}

	text, err := m.generate(ctx, c.head(m.cfg.PromptLimit))
	if err != nil {
		return nil, "", dependencyError("generate summary", err)
	}

	record := &models.PlaceSummaryModel{
		PlaceID:              placeID,
		Summary:              text,
		Model:                m.cfg.Model,
		SourceReviewCount:    c.fp.count,
		SourceLatestReviewAt: c.fp.latestAt,
	}
	if err := m.summaries.UpsertCachedSummary(ctx, record); err != nil {
		return nil, "", dependencyError("upsert summary", err)
	}

	m.log.Info("place summary regenerated",
		zap.String("place_id", placeID),
		zap.Int("source_review_count", c.fp.count),
		zap.String("model", m.cfg.Model),
	)
	return &Result{PlaceID: placeID, Summary: text, SourceReviewCount: c.fp.count, Cached: false}, outcomeMiss, nil
}

func (m *Manager) generate(ctx context.Context, texts []string) (string, error) {
	start := time.Now()
	text, err := m.gen.Generate(ctx, buildPrompt(texts), m.cfg.Model)
	m.cfg.Metrics.observeGeneration(time.Since(start))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func hitResult(placeID string, cached *models.PlaceSummaryModel) *Result {
	res := &Result{
		PlaceID:           placeID,
		Summary:           strings.TrimSpace(cached.Summary),
		SourceReviewCount: cached.SourceReviewCount,
		Cached:            true,
	}
	if !cached.UpdatedAt.IsZero() {
		updatedAt := cached.UpdatedAt
		res.UpdatedAt = &updatedAt
	}
	return res
}
