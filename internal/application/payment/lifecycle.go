package payment

import (
	"context"
	"errors"
	"time"

	domainErrors "github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/domain/outbox"
	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/cassiomorais/paygate/internal/domain/txn"
	"github.com/cassiomorais/paygate/internal/providers"
)

// AdapterFactory is the subset of providers.Factory the lifecycle engine
// depends on, so tests can substitute a stub without wiring circuit
// breakers or real adapters.
type AdapterFactory interface {
	CreatePaymentLink(ctx context.Context, name payment.Provider, in providers.CreateLinkInput) (*providers.CreateLinkResult, error)
}

// MetricsRecorder is the subset of observability.Metrics the lifecycle
// engine needs, so tests can run without a Prometheus registry.
type MetricsRecorder interface {
	RecordPaymentTransition(provider, status string)
	ObservePaymentDuration(provider, status string, seconds float64)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) RecordPaymentTransition(string, string)         {}
func (noopMetricsRecorder) ObservePaymentDuration(string, string, float64) {}

// Engine owns the payment lifecycle: minting intents against a provider
// and resolving them from webhook callbacks, one idempotency key and one
// order code to at most one payment.
type Engine struct {
	payments  payment.Repository
	outbox    outbox.Repository
	providers AdapterFactory
	txManager TransactionManager
	metrics   MetricsRecorder
}

func NewEngine(payments payment.Repository, outboxRepo outbox.Repository, adapters AdapterFactory, txManager TransactionManager, metrics MetricsRecorder) *Engine {
	if metrics == nil {
		metrics = noopMetricsRecorder{}
	}
	return &Engine{
		payments:  payments,
		outbox:    outboxRepo,
		providers: adapters,
		txManager: txManager,
		metrics:   metrics,
	}
}

// CreateIntentRequest is the input to CreateIntent.
type CreateIntentRequest struct {
	OrderCode      string
	IdempotencyKey string
	AmountCents    int64
	Currency       payment.Currency
	Provider       payment.Provider
	RedirectURL    string
	Metadata       map[string]any
}

// CreateIntent mints exactly one payment per idempotency key. A replayed
// key returns the payment already on file, regardless of its status,
// without calling the provider a second time.
func (e *Engine) CreateIntent(ctx context.Context, req CreateIntentRequest) (*payment.Payment, error) {
	existing, err := e.payments.FindByIdempotencyKey(ctx, req.IdempotencyKey)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, domainErrors.ErrPaymentNotFound):
		return nil, err
	}

	link, err := e.providers.CreatePaymentLink(ctx, req.Provider, providers.CreateLinkInput{
		OrderCode:      req.OrderCode,
		AmountCents:    req.AmountCents,
		Currency:       string(req.Currency),
		IdempotencyKey: req.IdempotencyKey,
		RedirectURL:    req.RedirectURL,
	})
	if err != nil {
		return nil, err
	}

	p, err := payment.NewPending(payment.NewPendingInput{
		OrderCode:             req.OrderCode,
		IdempotencyKey:        req.IdempotencyKey,
		AmountCents:           req.AmountCents,
		Currency:              req.Currency,
		Provider:              req.Provider,
		ProviderTransactionID: link.ProviderTransactionID,
		PaymentURL:            link.PaymentURL,
		RedirectURL:           req.RedirectURL,
		Metadata:              req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	if err := e.payments.InsertPending(ctx, p); err != nil {
		if errors.Is(err, domainErrors.ErrDuplicateIdempotencyKey) {
			return e.payments.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		}
		return nil, err
	}

	e.metrics.RecordPaymentTransition(string(p.Provider), string(payment.StatusPending))

	return p, nil
}

// GetByIdempotencyKey resolves the payment a caller already created, for
// polling the link when the synchronous response was lost. It returns
// whatever status is on file, including CANCELLED.
func (e *Engine) GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*payment.Payment, error) {
	return e.payments.FindByIdempotencyKey(ctx, idempotencyKey)
}

// CompleteByProviderTransactionID applies a successful provider callback.
func (e *Engine) CompleteByProviderTransactionID(ctx context.Context, providerTxID string, rawPayload map[string]any) error {
	return e.transition(ctx, func(ctx context.Context, tx txn.Tx) (*payment.Payment, error) {
		return e.payments.FindByProviderTransactionID(ctx, providerTxID, tx)
	}, payment.StatusCompleted, outbox.EventPaymentCompleted, rawPayload)
}

// FailByProviderTransactionID applies a failed provider callback.
func (e *Engine) FailByProviderTransactionID(ctx context.Context, providerTxID string, rawPayload map[string]any) error {
	return e.transition(ctx, func(ctx context.Context, tx txn.Tx) (*payment.Payment, error) {
		return e.payments.FindByProviderTransactionID(ctx, providerTxID, tx)
	}, payment.StatusFailed, outbox.EventPaymentFailed, rawPayload)
}

// CancelByOrderCode cancels a payment. There is no public RPC for this;
// it exists for back-office/internal callers keyed on the caller's own
// order code rather than a provider transaction id.
func (e *Engine) CancelByOrderCode(ctx context.Context, orderCode string, rawPayload map[string]any) error {
	return e.transition(ctx, func(ctx context.Context, tx txn.Tx) (*payment.Payment, error) {
		return e.payments.FindByOrderCode(ctx, orderCode, tx)
	}, payment.StatusCancelled, outbox.EventPaymentCancelled, rawPayload)
}

// transition applies a status change atomically with the outbox append
// that fans it out. Three outcomes: the target status already matches
// (duplicate webhook, idempotent no-op), the current status is terminal
// and different from target (ErrStateTransitionConflict, caller logs and
// does not surface an error to the provider), or the transition applies
// cleanly and the event is recorded in the same transaction. The engine
// opens the transaction and hands it to lookup/UpdateStatus/Append as an
// explicit Tx, never via context.
func (e *Engine) transition(ctx context.Context, lookup func(ctx context.Context, tx txn.Tx) (*payment.Payment, error), target payment.Status, eventType outbox.EventType, rawPayload map[string]any) error {
	return e.txManager.WithTransaction(ctx, func(ctx context.Context, tx txn.Tx) error {
		p, err := lookup(ctx, tx)
		if err != nil {
			return err
		}

		if p.Status == target {
			return nil
		}
		if !p.CanTransitionTo(target) {
			return domainErrors.ErrStateTransitionConflict
		}

		now := time.Now()
		if err := e.payments.UpdateStatus(ctx, p.ID, target, now, tx); err != nil {
			// A concurrent caller changed the row between lookup and
			// update; if it reached the same target this is a duplicate.
			if errors.Is(err, domainErrors.ErrStateTransitionConflict) {
				if current, lookupErr := lookup(ctx, tx); lookupErr == nil && current.Status == target {
					return nil
				}
			}
			return err
		}

		record := outbox.NewPaymentRecord(p.ID, eventType, buildEventPayload(p, target, now, rawPayload))
		if err := e.outbox.Append(ctx, record, tx); err != nil {
			return err
		}

		e.metrics.RecordPaymentTransition(string(p.Provider), string(target))
		e.metrics.ObservePaymentDuration(string(p.Provider), string(target), now.Sub(p.CreatedAt).Seconds())
		return nil
	})
}

// statusTimestampField names the wire field for the status reached, per
// spec.md §3: completed_at, failed_at, or cancelled_at.
var statusTimestampField = map[payment.Status]string{
	payment.StatusCompleted: "completed_at",
	payment.StatusFailed:    "failed_at",
	payment.StatusCancelled: "cancelled_at",
}

// buildEventPayload produces the stable, snake_case wire shape spec.md §3
// requires, verbatim across every event type and provider:
// {payment_id, order_code, amount_cents, currency, provider, transaction_id,
// completed_at|failed_at|cancelled_at}.
func buildEventPayload(p *payment.Payment, target payment.Status, occurredAt time.Time, rawPayload map[string]any) map[string]any {
	payload := map[string]any{
		"payment_id":      p.ID.String(),
		"order_code":      p.OrderCode,
		"amount_cents":    p.AmountCents,
		"currency":        string(p.Currency),
		"provider":        string(p.Provider),
		"transaction_id":  p.ProviderTransactionID,
		statusTimestampField[target]: occurredAt.UTC().Format(time.RFC3339),
	}
	if rawPayload != nil {
		payload["provider_payload"] = rawPayload
	}
	return payload
}
