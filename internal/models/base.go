package models

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a time-ordered UUID so ids sort in insertion order, which keeps
// the (created_at, id) ordering of reviews total and stable.
func NewID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.New().String()
}

// Millis truncates t to the millisecond precision every backing store persists.
func Millis(t time.Time) time.Time {
	return t.Truncate(time.Millisecond)
}
