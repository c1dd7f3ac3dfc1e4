package zalopay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAppTransID(t *testing.T) {
	now := time.Date(2025, 10, 8, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "251008_ORDER-1", buildAppTransID(now, "ORDER-1"))
}

func TestBuildMac_Deterministic(t *testing.T) {
	mac1 := buildMac("key1", "app1", "251008_ORDER-1", "idem-1", 10000, 1728388800000, "{}", "[]")
	mac2 := buildMac("key1", "app1", "251008_ORDER-1", "idem-1", 10000, 1728388800000, "{}", "[]")
	assert.Equal(t, mac1, mac2)
}

func TestBuildMac_DifferentInputsDifferentMac(t *testing.T) {
	mac1 := buildMac("key1", "app1", "251008_ORDER-1", "idem-1", 10000, 1728388800000, "{}", "[]")
	mac2 := buildMac("key1", "app1", "251008_ORDER-2", "idem-1", 10000, 1728388800000, "{}", "[]")
	assert.NotEqual(t, mac1, mac2)
}

// TestHandleCallback_ValidMacAccepted exercises the property from the
// callback-verification contract: a callback whose mac matches
// hmac(key2, data) is accepted and its order id recovered.
func TestHandleCallback_ValidMacAccepted(t *testing.T) {
	a := New(Config{Key2: "key2", Endpoint: "http://example.invalid"})

	data := callbackData{AppTransID: "251008_ORDER-1", AppID: 1, Amount: 10000}
	dataBytes, err := json.Marshal(data)
	require.NoError(t, err)

	envelope := callbackEnvelope{
		Data: string(dataBytes),
		Mac:  hmacHex("key2", string(dataBytes)),
		Type: 1,
	}
	body, err := json.Marshal(envelope)
	require.NoError(t, err)

	outcome, err := a.HandleCallback(context.Background(), body)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "251008_ORDER-1", outcome.ProviderTransactionID)
}

func TestHandleCallback_InvalidMacRejected(t *testing.T) {
	a := New(Config{Key2: "key2", Endpoint: "http://example.invalid"})

	data := callbackData{AppTransID: "251008_ORDER-1", AppID: 1, Amount: 10000}
	dataBytes, err := json.Marshal(data)
	require.NoError(t, err)

	envelope := callbackEnvelope{
		Data: string(dataBytes),
		Mac:  "not-the-real-mac",
		Type: 1,
	}
	body, err := json.Marshal(envelope)
	require.NoError(t, err)

	outcome, err := a.HandleCallback(context.Background(), body)
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Empty(t, outcome.ProviderTransactionID)
}

func TestHandleCallback_WrongTypeRejected(t *testing.T) {
	a := New(Config{Key2: "key2", Endpoint: "http://example.invalid"})

	data := callbackData{AppTransID: "251008_ORDER-1", AppID: 1, Amount: 10000}
	dataBytes, err := json.Marshal(data)
	require.NoError(t, err)

	envelope := callbackEnvelope{
		Data: string(dataBytes),
		Mac:  hmacHex("key2", string(dataBytes)),
		Type: 2,
	}
	body, err := json.Marshal(envelope)
	require.NoError(t, err)

	outcome, err := a.HandleCallback(context.Background(), body)
	require.NoError(t, err)
	assert.False(t, outcome.Success)
}

func TestHandleCallback_MalformedEnvelopeReturnsFailureOutcome(t *testing.T) {
	a := New(Config{Key2: "key2", Endpoint: "http://example.invalid"})

	outcome, err := a.HandleCallback(context.Background(), []byte("not json"))
	require.NoError(t, err)
	assert.False(t, outcome.Success)
}

func TestName(t *testing.T) {
	a := New(Config{Endpoint: "http://example.invalid"})
	assert.Equal(t, "ZALOPAY", a.Name())
}
