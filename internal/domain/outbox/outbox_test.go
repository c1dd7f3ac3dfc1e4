package outbox

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaymentRecord(t *testing.T) {
	paymentID := uuid.New()
	payload := map[string]any{
		"payment_id":   paymentID.String(),
		"amount_cents": 10000,
		"currency":     "VND",
	}

	record := NewPaymentRecord(paymentID, EventPaymentCompleted, payload)

	require.NotNil(t, record)
	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.Equal(t, aggregateTypePayment, record.AggregateType)
	assert.Equal(t, paymentID, record.AggregateID)
	assert.Equal(t, EventPaymentCompleted, record.EventType)
	assert.Equal(t, payload, record.Payload)
	assert.False(t, record.Published)
	assert.Equal(t, 0, record.RetryCount)
	assert.False(t, record.CreatedAt.IsZero())
	assert.Nil(t, record.PublishedAt)
}

func TestNewPaymentRecord_EventTypes(t *testing.T) {
	paymentID := uuid.New()

	tests := []struct {
		name      string
		eventType EventType
	}{
		{"completed", EventPaymentCompleted},
		{"failed", EventPaymentFailed},
		{"cancelled", EventPaymentCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := NewPaymentRecord(paymentID, tt.eventType, nil)
			assert.Equal(t, tt.eventType, record.EventType)
			assert.Equal(t, aggregateTypePayment, record.AggregateType)
		})
	}
}

func TestRecord_UniqueIDs(t *testing.T) {
	paymentID := uuid.New()
	r1 := NewPaymentRecord(paymentID, EventPaymentCompleted, nil)
	r2 := NewPaymentRecord(paymentID, EventPaymentCompleted, nil)

	assert.NotEqual(t, r1.ID, r2.ID)
	assert.Equal(t, r1.AggregateID, r2.AggregateID)
}

func TestTruncateError_ShortMessage(t *testing.T) {
	msg := "connection refused"
	assert.Equal(t, msg, TruncateError(msg))
}

func TestTruncateError_LongMessageTruncatedTo500Bytes(t *testing.T) {
	long := make([]byte, 900)
	for i := range long {
		long[i] = 'x'
	}
	truncated := TruncateError(string(long))
	assert.Len(t, truncated, lastErrorMaxBytes)
}
