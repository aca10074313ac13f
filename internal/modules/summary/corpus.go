package summary

import (
	"strings"
	"time"

	"github.com/accessmap/gateway/internal/models"
)

// fingerprint is the cheap proxy for corpus identity that drives invalidation.
type fingerprint struct {
	count    int
	latestAt *time.Time
}

type corpus struct {
	texts []string
	fp    fingerprint
}

// buildCorpus keeps the non-blank texts in store order (newest first). latestAt
// spans every fetched review that carries a timestamp, blank ones included, so a
// new blank review still invalidates the cached summary.
func buildCorpus(reviews []models.ReviewModel) corpus {
	var c corpus
	for _, r := range reviews {
		if r.CreatedAt != nil && (c.fp.latestAt == nil || r.CreatedAt.After(*c.fp.latestAt)) {
			ts := *r.CreatedAt
			c.fp.latestAt = &ts
		}
		if text := strings.TrimSpace(r.Text); text != "" {
			c.texts = append(c.texts, text)
		}
	}
	c.fp.count = len(c.texts)
	return c
}

func (c corpus) empty() bool { return len(c.texts) == 0 }

// head returns at most n of the most recent texts.
func (c corpus) head(n int) []string {
	if n <= 0 || len(c.texts) <= n {
		return c.texts
	}
	return c.texts[:n]
}

// validFor reports whether the cached record was generated from a corpus with
// the same fingerprint and still carries text.
func validFor(cached *models.PlaceSummaryModel, fp fingerprint) bool {
	if cached == nil || strings.TrimSpace(cached.Summary) == "" {
		return false
	}
	return cached.SourceReviewCount == fp.count && sameInstant(cached.SourceLatestReviewAt, fp.latestAt)
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return models.Millis(*a).Equal(models.Millis(*b))
}
