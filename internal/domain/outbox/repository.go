package outbox

import (
	"context"
	"time"

	"github.com/cassiomorais/paygate/internal/domain/txn"
	"github.com/google/uuid"
)

// Repository is the Outbox Store port (C3).
type Repository interface {
	// Append writes one row using the transaction the Lifecycle Engine
	// opened for the status change it accompanies, given explicitly as tx.
	Append(ctx context.Context, record *Record, tx txn.Tx) error

	// FetchUnpublished returns up to limit rows with published=false and
	// retryCount < maxRetries, ordered by createdAt ascending, ties
	// broken by id, to approximate global FIFO.
	FetchUnpublished(ctx context.Context, limit, maxRetries int) ([]*Record, error)

	// MarkPublished sets published=true, publishedAt=now.
	MarkPublished(ctx context.Context, id uuid.UUID) error

	// IncrementRetry bumps retryCount and stores a truncated error.
	IncrementRetry(ctx context.Context, id uuid.UUID, errorMessage string) error

	// DeletePublishedOlderThan deletes rows with published=true and
	// publishedAt older than the retention horizon, returning the count
	// removed.
	DeletePublishedOlderThan(ctx context.Context, retention time.Duration) (int, error)

	// FetchExhausted returns unpublished rows whose retryCount has
	// reached maxRetries, for alerting.
	FetchExhausted(ctx context.Context, maxRetries int) ([]*Record, error)
}
