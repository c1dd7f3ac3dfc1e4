package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/cassiomorais/paygate/internal/domain/txn"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// paymentUniqueConstraints maps the Postgres unique-constraint names this
// table declares to the domain error each one signals.
var paymentUniqueConstraints = map[string]error{
	"payments_idempotency_key_key": domainErrors.ErrDuplicateIdempotencyKey,
	"payments_order_code_key":      domainErrors.ErrDuplicateOrderCode,
}

// PaymentRepository implements payment.Repository using PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const paymentColumns = `id, order_code, idempotency_key, amount_cents, currency, provider,
	       provider_transaction_id, redirect_url, payment_url, status,
	       metadata, created_at, updated_at, completed_at, failed_at, cancelled_at`

// InsertPending persists a newly created PENDING payment.
func (r *PaymentRepository) InsertPending(ctx context.Context, p *payment.Payment) error {
	metadata, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO payments
		 (id, order_code, idempotency_key, amount_cents, currency, provider,
		  provider_transaction_id, redirect_url, payment_url, status,
		  metadata, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.OrderCode, p.IdempotencyKey, p.AmountCents, string(p.Currency), string(p.Provider),
		p.ProviderTransactionID, p.RedirectURL, p.PaymentURL, string(p.Status),
		metadata, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if mapped, ok := paymentUniqueConstraints[pgErr.ConstraintName]; ok {
				return mapped
			}
			return domainErrors.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// FindByIdempotencyKey returns the payment with the given idempotency key.
func (r *PaymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*payment.Payment, error) {
	return r.scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE idempotency_key = $1`, key))
}

// FindByOrderCode returns the payment with the given order code. tx is
// the transaction the Lifecycle Engine opened for the status change this
// lookup feeds into.
func (r *PaymentRepository) FindByOrderCode(ctx context.Context, orderCode string, tx txn.Tx) (*payment.Payment, error) {
	return r.scanPayment(dbtx(r.pool, tx).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_code = $1`, orderCode))
}

// FindByProviderTransactionID returns the payment with the given
// provider-scoped transaction id. tx is the transaction the Lifecycle
// Engine opened for the status change this lookup feeds into.
func (r *PaymentRepository) FindByProviderTransactionID(ctx context.Context, providerTxID string, tx txn.Tx) (*payment.Payment, error) {
	return r.scanPayment(dbtx(r.pool, tx).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE provider_transaction_id = $1`, providerTxID))
}

// UpdateStatus must run against the transaction tx, the same one the
// Lifecycle Engine used to look the row up. It uses a conditional WHERE
// clause (rather than a preceding SELECT ... FOR UPDATE) so that the
// terminal-state guard and the write happen atomically: a second
// concurrent caller racing on the same row simply affects zero rows, gets
// ErrStateTransitionConflict, and its outcome is decided by the Lifecycle
// Engine reading the row's final status afterward.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, toStatus payment.Status, at time.Time, tx txn.Tx) error {
	var timestampColumn string
	switch toStatus {
	case payment.StatusCompleted:
		timestampColumn = "completed_at"
	case payment.StatusFailed:
		timestampColumn = "failed_at"
	case payment.StatusCancelled:
		timestampColumn = "cancelled_at"
	default:
		return fmt.Errorf("updateStatus: unsupported target status %q", toStatus)
	}

	query := fmt.Sprintf(
		`UPDATE payments SET status = $1, updated_at = $2, %s = $2
		 WHERE id = $3 AND status = $4`, timestampColumn)

	tag, err := dbtx(r.pool, tx).Exec(ctx, query, string(toStatus), at, id, string(payment.StatusPending))
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrStateTransitionConflict
	}
	return nil
}

// --- scanning helpers ---

func (r *PaymentRepository) scanPayment(s scanner) (*payment.Payment, error) {
	p := &payment.Payment{Metadata: make(map[string]any)}
	var (
		currency  string
		provider  string
		status    string
		metadata  []byte
	)
	err := s.Scan(
		&p.ID, &p.OrderCode, &p.IdempotencyKey, &p.AmountCents, &currency, &provider,
		&p.ProviderTransactionID, &p.RedirectURL, &p.PaymentURL, &status,
		&metadata, &p.CreatedAt, &p.UpdatedAt, &p.CompletedAt, &p.FailedAt, &p.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	p.Currency = payment.Currency(currency)
	p.Provider = payment.Provider(provider)
	p.Status = payment.Status(status)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal payment metadata: %w", err)
		}
	}
	return p, nil
}
