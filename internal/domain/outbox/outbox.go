package outbox

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the closed set of business events the Lifecycle Engine can
// append to the outbox.
type EventType string

const (
	EventPaymentCompleted EventType = "PaymentCompleted"
	EventPaymentFailed    EventType = "PaymentFailed"
	EventPaymentCancelled EventType = "PaymentCancelled"
)

const (
	aggregateTypePayment = "Payment"
	lastErrorMaxBytes    = 500
)

// Record is a durable, pending business event (O1-O4 in the outbox
// invariants: appended only inside the mutating transaction, marked
// published only after bus ack, retryCount monotonic, deleted only once
// published and past retention).
type Record struct {
	ID            uuid.UUID
	AggregateID   uuid.UUID
	AggregateType string
	EventType     EventType
	Payload       map[string]any
	Published     bool
	PublishedAt   *time.Time
	RetryCount    int
	LastError     string
	CreatedAt     time.Time
}

// NewPaymentRecord builds an unpublished outbox row for a payment
// aggregate. Truncation of a previous LastError is not this constructor's
// concern; it only ever runs at append time, when RetryCount is zero.
func NewPaymentRecord(paymentID uuid.UUID, eventType EventType, payload map[string]any) *Record {
	return &Record{
		ID:            uuid.New(),
		AggregateID:   paymentID,
		AggregateType: aggregateTypePayment,
		EventType:     eventType,
		Payload:       payload,
		Published:     false,
		RetryCount:    0,
		CreatedAt:     time.Now(),
	}
}

// TruncateError truncates a publish error message to the 500-byte bound
// the outbox column enforces (spec: lastError truncated to 500 bytes).
func TruncateError(msg string) string {
	if len(msg) <= lastErrorMaxBytes {
		return msg
	}
	return msg[:lastErrorMaxBytes]
}
