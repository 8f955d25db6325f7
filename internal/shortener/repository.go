package shortener

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no mapping exists for an identifier. It is
	// an expected outcome, not a failure.
	ErrNotFound = errors.New("short url not found")

	// ErrDuplicateID is returned by Insert when the identifier is already taken.
	ErrDuplicateID = errors.New("short id already exists")

	// ErrWriteFailed wraps persistence failures on insert.
	ErrWriteFailed = errors.New("write failed")

	// ErrReadFailed wraps persistence failures on lookup.
	ErrReadFailed = errors.New("read failed")

	// ErrBadRequest is returned when a create request body is invalid.
	ErrBadRequest = errors.New("bad request")
)

// Repository persists mappings.
type Repository interface {
	// Insert appends a new mapping. Returns ErrDuplicateID when the short id is taken.
	Insert(ctx context.Context, mapping *Mapping) error

	// FindByShortID returns ErrNotFound when no mapping matches.
	FindByShortID(ctx context.Context, id ShortID) (*Mapping, error)
}
