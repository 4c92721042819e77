package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/remedy/internal/core/domain"
)

var (
	// ErrErrorNotFound is returned when a stored error doesn't exist
	ErrErrorNotFound = errors.New("error not found")
)

// ErrorRepository handles persistence of classified errors
type ErrorRepository interface {
	// Save stores a classified error
	Save(ctx context.Context, e *domain.ClassifiedError) error

	// MarkResolved marks a stored error as resolved
	MarkResolved(ctx context.Context, id string) error

	// MarkAllResolved marks every unresolved error as resolved
	MarkAllResolved(ctx context.Context) (int, error)

	// Unresolved retrieves all unresolved errors, newest first
	Unresolved(ctx context.Context) ([]*domain.ClassifiedError, error)

	// Counts returns unresolved error counts grouped by source
	Counts(ctx context.Context) (map[domain.ErrorSource]int, error)

	// Prune deletes resolved errors older than the retention period
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}
