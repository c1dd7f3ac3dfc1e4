package payment

import (
	"time"

	"github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/google/uuid"
)

// Status represents the payment status in the lifecycle state machine.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Provider identifies the external payment gateway handling a payment.
type Provider string

const (
	ProviderZaloPay Provider = "ZALOPAY"
	ProviderPayOS   Provider = "PAYOS"
	ProviderVNPay   Provider = "VNPAY"
)

// Currency is a closed set; only VND is supported.
type Currency string

const (
	CurrencyVND Currency = "VND"
)

// Payment is the identity of one payment attempt against a provider.
type Payment struct {
	ID                    uuid.UUID
	OrderCode             string
	IdempotencyKey        string
	AmountCents           int64
	Currency              Currency
	Provider              Provider
	ProviderTransactionID string
	RedirectURL           string
	PaymentURL            string
	Status                Status
	Metadata              map[string]any
	CreatedAt             time.Time
	UpdatedAt             time.Time
	CompletedAt           *time.Time
	FailedAt              *time.Time
	CancelledAt           *time.Time
}

// NewPendingInput carries the fields known at intent-creation time, after
// the provider adapter has already minted a payment link.
type NewPendingInput struct {
	OrderCode             string
	IdempotencyKey        string
	AmountCents           int64
	Currency              Currency
	Provider              Provider
	ProviderTransactionID string
	RedirectURL           string
	PaymentURL            string
	Metadata              map[string]any
}

// NewPending builds a PENDING payment ready to be inserted by the store.
// The caller (Lifecycle Engine) is responsible for calling this only after
// the adapter's createPaymentLink has succeeded.
func NewPending(in NewPendingInput) (*Payment, error) {
	if in.AmountCents <= 0 {
		return nil, errors.NewValidationError("amountCents", "must be greater than 0")
	}
	if in.Currency != CurrencyVND {
		return nil, errors.NewValidationError("currency", "must be VND")
	}
	if in.OrderCode == "" {
		return nil, errors.NewValidationError("orderCode", "cannot be empty")
	}
	if in.IdempotencyKey == "" {
		return nil, errors.NewValidationError("idempotencyKey", "cannot be empty")
	}

	now := time.Now()
	metadata := in.Metadata
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Payment{
		ID:                    uuid.New(),
		OrderCode:             in.OrderCode,
		IdempotencyKey:        in.IdempotencyKey,
		AmountCents:           in.AmountCents,
		Currency:              in.Currency,
		Provider:              in.Provider,
		ProviderTransactionID: in.ProviderTransactionID,
		RedirectURL:           in.RedirectURL,
		PaymentURL:            in.PaymentURL,
		Status:                StatusPending,
		Metadata:              metadata,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// transitions enumerates the only edges the lifecycle state machine allows.
// Terminal states (COMPLETED, FAILED, CANCELLED) have no outgoing edges.
var transitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// CanTransitionTo reports whether newStatus is reachable from the payment's
// current status in a single edge.
func (p *Payment) CanTransitionTo(newStatus Status) bool {
	for _, allowed := range transitions[p.Status] {
		if allowed == newStatus {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the payment has reached a terminal status.
func (p *Payment) IsTerminal() bool {
	return p.Status == StatusCompleted || p.Status == StatusFailed || p.Status == StatusCancelled
}

// TransitionTo moves the payment to newStatus, stamping the matching
// timestamp. It refuses transitions not present in the state machine;
// the caller (Lifecycle Engine) is expected to treat a same-status
// terminal call as an idempotent no-op before ever calling this, and a
// mismatched terminal call as a StateTransitionConflict — this method
// only enforces the DAG shape.
func (p *Payment) TransitionTo(newStatus Status, at time.Time) error {
	if !p.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(p.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}

	p.Status = newStatus
	p.UpdatedAt = at
	switch newStatus {
	case StatusCompleted:
		p.CompletedAt = &at
	case StatusFailed:
		p.FailedAt = &at
	case StatusCancelled:
		p.CancelledAt = &at
	}
	return nil
}
