package summary

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/accessmap/gateway/internal/models"
)

func ts(sec int64) *time.Time {
	t := time.Unix(sec, 0).UTC()
	return &t
}

type fakeReviewStore struct {
	mu      sync.Mutex
	reviews map[string][]models.ReviewModel
	err     error
	calls   int
	limits  []int
}

func newFakeReviewStore() *fakeReviewStore {
	return &fakeReviewStore{reviews: map[string][]models.ReviewModel{}}
}

func (s *fakeReviewStore) add(placeID, text string, createdAt *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := fmt.Sprintf("r%04d", len(s.reviews[placeID]))
	s.reviews[placeID] = append(s.reviews[placeID], models.ReviewModel{
		ID: id, PlaceID: placeID, Text: text, CreatedAt: createdAt,
	})
}

func (s *fakeReviewStore) setText(placeID string, idx int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[placeID][idx].Text = text
}

func (s *fakeReviewStore) QueryReviews(_ context.Context, placeID string, limit int) ([]models.ReviewModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.limits = append(s.limits, limit)
	if s.err != nil {
		return nil, s.err
	}

	out := append([]models.ReviewModel(nil), s.reviews[placeID]...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CreatedAt, out[j].CreatedAt
		switch {
		case a == nil && b == nil:
			return out[i].ID > out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		default:
			return out[i].ID > out[j].ID
		}
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeSummaryStore struct {
	mu        sync.Mutex
	records   map[string]models.PlaceSummaryModel
	getErr    error
	upsertErr error
	gets      int
	upserts   int
	now       func() time.Time
}

func newFakeSummaryStore() *fakeSummaryStore {
	return &fakeSummaryStore{
		records: map[string]models.PlaceSummaryModel{},
		now:     func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func (s *fakeSummaryStore) GetCachedSummary(_ context.Context, placeID string) (*models.PlaceSummaryModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	rec, ok := s.records[placeID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *fakeSummaryStore) UpsertCachedSummary(_ context.Context, record *models.PlaceSummaryModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	rec := *record
	rec.UpdatedAt = s.now()
	s.records[record.PlaceID] = rec
	return nil
}

func (s *fakeSummaryStore) record(placeID string) (models.PlaceSummaryModel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[placeID]
	return rec, ok
}

type spyGenerator struct {
	mu      sync.Mutex
	prompts []string
	models  []string
	err     error
	delay   time.Duration
	reply   func(n int) string
}

func (g *spyGenerator) Generate(_ context.Context, prompt, model string) (string, error) {
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	g.models = append(g.models, model)
	if g.err != nil {
		return "", g.err
	}
	if g.reply != nil {
		return g.reply(len(g.prompts)), nil
	}
	return fmt.Sprintf("  Summary number %d.\n", len(g.prompts)), nil
}

func (g *spyGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func (g *spyGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

type failingLocker struct{ err error }

func (l failingLocker) Lock(context.Context, string) (func(), error) { return nil, l.err }
