package payment

import (
	"context"
	"time"

	"github.com/cassiomorais/paygate/internal/domain/txn"
	"github.com/google/uuid"
)

// Repository is the Payment Store port (C2): persist payment records and
// enforce uniqueness on idempotency key and order code. FindByOrderCode,
// FindByProviderTransactionID, and UpdateStatus take the transaction the
// Lifecycle Engine opened explicitly, as a Tx parameter — they are only
// ever called from inside that transaction, never recovered from ctx.
type Repository interface {
	// InsertPending persists a newly created PENDING payment. It returns
	// errors.ErrDuplicateIdempotencyKey or errors.ErrDuplicateOrderCode
	// when the matching uniqueness constraint is violated.
	InsertPending(ctx context.Context, p *Payment) error

	// FindByIdempotencyKey returns the payment with the given idempotency
	// key, or errors.ErrPaymentNotFound if none exists.
	FindByIdempotencyKey(ctx context.Context, key string) (*Payment, error)

	// FindByOrderCode returns the payment with the given order code, or
	// errors.ErrPaymentNotFound if none exists.
	FindByOrderCode(ctx context.Context, orderCode string, tx txn.Tx) (*Payment, error)

	// FindByProviderTransactionID returns the payment with the given
	// provider-scoped transaction id, or errors.ErrPaymentNotFound.
	FindByProviderTransactionID(ctx context.Context, providerTxID string, tx txn.Tx) (*Payment, error)

	// UpdateStatus locks (or conditionally updates) the payment row so
	// that concurrent callers racing on the same payment observe a
	// single winner.
	UpdateStatus(ctx context.Context, id uuid.UUID, toStatus Status, at time.Time, tx txn.Tx) error
}
