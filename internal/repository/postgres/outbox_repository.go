package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cassiomorais/paygate/internal/domain/outbox"
	"github.com/cassiomorais/paygate/internal/domain/txn"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxRepository implements outbox.Repository using PostgreSQL.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Append writes one row using the transaction the Lifecycle Engine opened
// for the status change this event accompanies, given explicitly as tx.
func (r *OutboxRepository) Append(ctx context.Context, record *outbox.Record, tx txn.Tx) error {
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	_, err = dbtx(r.pool, tx).Exec(ctx,
		`INSERT INTO outbox (id, aggregate_id, aggregate_type, event_type, payload, published, retry_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.AggregateID, record.AggregateType, string(record.EventType), payload,
		record.Published, record.RetryCount, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append outbox record: %w", err)
	}
	return nil
}

// FetchUnpublished returns up to limit unpublished, not-yet-exhausted rows
// ordered by createdAt ascending (ties broken by id) to approximate FIFO.
// FOR UPDATE SKIP LOCKED lets multiple publisher instances fetch
// concurrently without blocking on each other's in-flight batch.
func (r *OutboxRepository) FetchUnpublished(ctx context.Context, limit, maxRetries int) ([]*outbox.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, payload, published, published_at, retry_count, last_error, created_at
		 FROM outbox
		 WHERE published = false AND retry_count < $1
		 ORDER BY created_at ASC, id ASC
		 LIMIT $2
		 FOR UPDATE SKIP LOCKED`, maxRetries, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished outbox rows: %w", err)
	}
	defer rows.Close()

	return scanOutboxRows(rows)
}

// MarkPublished sets published=true, publishedAt=now.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	_, err := r.pool.Exec(ctx,
		`UPDATE outbox SET published = true, published_at = $1 WHERE id = $2`, now, id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// IncrementRetry bumps retryCount and stores a truncated error message.
func (r *OutboxRepository) IncrementRetry(ctx context.Context, id uuid.UUID, errorMessage string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE outbox SET retry_count = retry_count + 1, last_error = $1 WHERE id = $2`,
		outbox.TruncateError(errorMessage), id,
	)
	if err != nil {
		return fmt.Errorf("increment outbox retry: %w", err)
	}
	return nil
}

// DeletePublishedOlderThan deletes published rows past the retention
// horizon and returns the count removed.
func (r *OutboxRepository) DeletePublishedOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM outbox WHERE published = true AND published_at < $1`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete published outbox rows: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// FetchExhausted returns unpublished rows whose retryCount has reached
// maxRetries, for alerting.
func (r *OutboxRepository) FetchExhausted(ctx context.Context, maxRetries int) ([]*outbox.Record, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, payload, published, published_at, retry_count, last_error, created_at
		 FROM outbox
		 WHERE published = false AND retry_count >= $1`, maxRetries,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch exhausted outbox rows: %w", err)
	}
	defer rows.Close()

	return scanOutboxRows(rows)
}

func scanOutboxRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*outbox.Record, error) {
	var records []*outbox.Record
	for rows.Next() {
		rec := &outbox.Record{}
		var (
			payload   []byte
			eventType string
			lastError *string
		)
		if err := rows.Scan(
			&rec.ID, &rec.AggregateID, &rec.AggregateType, &eventType, &payload,
			&rec.Published, &rec.PublishedAt, &rec.RetryCount, &lastError, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		rec.EventType = outbox.EventType(eventType)
		if lastError != nil {
			rec.LastError = *lastError
		}
		if len(payload) > 0 {
			rec.Payload = make(map[string]any)
			if err := json.Unmarshal(payload, &rec.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal outbox payload: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
