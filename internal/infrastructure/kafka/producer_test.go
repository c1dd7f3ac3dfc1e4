package kafka

import (
	"testing"

	"github.com/cassiomorais/paygate/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
)

func TestTopicFor_KnownEventTypes(t *testing.T) {
	tests := []struct {
		eventType outbox.EventType
		topic     string
	}{
		{outbox.EventPaymentCompleted, "payment.completed"},
		{outbox.EventPaymentFailed, "payment.failed"},
		{outbox.EventPaymentCancelled, "payment.cancelled"},
	}

	for _, tt := range tests {
		topic, ok := TopicFor(tt.eventType)
		assert.True(t, ok)
		assert.Equal(t, tt.topic, topic)
	}
}

func TestTopicFor_UnknownEventTypeReturnsFalse(t *testing.T) {
	_, ok := TopicFor(outbox.EventType("UnknownEvent"))
	assert.False(t, ok)
}
