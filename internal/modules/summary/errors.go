package summary

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when the place id is empty or whitespace only.
var ErrInvalidInput = errors.New("place_id is required")

// DependencyError reports a failure of a review store, summary store, lock or
// generation call. No cache write has happened when it is returned.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("summary: %s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

func dependencyError(op string, err error) error {
	return &DependencyError{Op: op, Err: err}
}

// IsDependencyError reports whether err wraps a *DependencyError.
func IsDependencyError(err error) bool {
	var depErr *DependencyError
	return errors.As(err, &depErr)
}
