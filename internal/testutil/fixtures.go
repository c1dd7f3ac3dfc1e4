package testutil

import (
	"time"

	"github.com/cassiomorais/paygate/internal/domain/outbox"
	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/google/uuid"
)

func NewTestPayment(provider payment.Provider, amountCents int64) *payment.Payment {
	now := time.Now()
	return &payment.Payment{
		ID:                    uuid.New(),
		OrderCode:             "ORD-" + uuid.New().String()[:8],
		IdempotencyKey:        uuid.New().String(),
		AmountCents:           amountCents,
		Currency:              payment.CurrencyVND,
		Provider:              provider,
		ProviderTransactionID: "txn_" + uuid.New().String()[:8],
		PaymentURL:            "https://provider.example/pay",
		Status:                payment.StatusPending,
		Metadata:              make(map[string]any),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func NewCompletedPayment(provider payment.Provider, amountCents int64) *payment.Payment {
	p := NewTestPayment(provider, amountCents)
	completedAt := time.Now()
	_ = p.TransitionTo(payment.StatusCompleted, completedAt)
	return p
}

func NewTestOutboxRecord(paymentID uuid.UUID, eventType outbox.EventType) *outbox.Record {
	return outbox.NewPaymentRecord(paymentID, eventType, map[string]any{
		"payment_id": paymentID.String(),
	})
}
