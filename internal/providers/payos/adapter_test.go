package payos

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPayOSOrderCode_SpecExample(t *testing.T) {
	now := time.Date(2025, 10, 8, 9, 0, 0, 0, time.UTC)

	code, err := buildPayOSOrderCode(now, "TB-TSE24-20251008-A3B7K9M2")
	require.NoError(t, err)
	assert.Equal(t, int64(2025100812702890), code)
}

func TestBuildPayOSOrderCode_Deterministic(t *testing.T) {
	now := time.Date(2025, 10, 8, 9, 0, 0, 0, time.UTC)

	code1, err := buildPayOSOrderCode(now, "TB-TSE24-20251008-A3B7K9M2")
	require.NoError(t, err)
	code2, err := buildPayOSOrderCode(now, "TB-TSE24-20251008-A3B7K9M2")
	require.NoError(t, err)
	assert.Equal(t, code1, code2)
}

func TestBuildPayOSOrderCode_LossyAcrossDifferentOrderCodes(t *testing.T) {
	now := time.Date(2025, 10, 8, 9, 0, 0, 0, time.UTC)

	code1, err := buildPayOSOrderCode(now, "TB-TSE24-20251008-A3B7K9M2")
	require.NoError(t, err)
	code2, err := buildPayOSOrderCode(now, "TB-TSE24-20251008-ZZZZZZZZ")
	require.NoError(t, err)
	assert.NotEqual(t, code1, code2)
}

func TestBuildPayOSOrderCode_TooShortRejected(t *testing.T) {
	now := time.Date(2025, 10, 8, 9, 0, 0, 0, time.UTC)

	_, err := buildPayOSOrderCode(now, "A1")
	assert.Error(t, err)
}

// TestHandleCallback_ValidSignatureAccepted exercises the
// signature-verification-then-code contract: a callback whose signature
// matches and whose code is "00" is reported successful.
func TestHandleCallback_ValidSignatureAccepted(t *testing.T) {
	a := New(Config{ChecksumKey: "checksum-key", Endpoint: "http://example.invalid"})

	body := callbackBody{
		Code: "00",
		Desc: "success",
	}
	body.Data.OrderCode = 2025100812702890
	body.Data.PaymentLinkID = "plink_123"
	body.Data.Amount = 10000
	body.Signature = sign("checksum-key", map[string]string{
		"orderCode":     "2025100812702890",
		"paymentLinkId": "plink_123",
		"amount":        "10000",
	})

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	outcome, err := a.HandleCallback(context.Background(), raw)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "plink_123", outcome.ProviderTransactionID)
}

func TestHandleCallback_InvalidSignatureRejected(t *testing.T) {
	a := New(Config{ChecksumKey: "checksum-key", Endpoint: "http://example.invalid"})

	body := callbackBody{Code: "00"}
	body.Data.PaymentLinkID = "plink_123"
	body.Signature = "not-the-real-signature"

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	outcome, err := a.HandleCallback(context.Background(), raw)
	require.NoError(t, err)
	assert.False(t, outcome.Success)
}

func TestHandleCallback_NonZeroCodeIsFailure(t *testing.T) {
	a := New(Config{ChecksumKey: "checksum-key", Endpoint: "http://example.invalid"})

	body := callbackBody{Code: "01", Desc: "cancelled by user"}
	body.Data.OrderCode = 2025100812702890
	body.Data.PaymentLinkID = "plink_123"
	body.Data.Amount = 10000
	body.Signature = sign("checksum-key", map[string]string{
		"orderCode":     "2025100812702890",
		"paymentLinkId": "plink_123",
		"amount":        "10000",
	})

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	outcome, err := a.HandleCallback(context.Background(), raw)
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, "plink_123", outcome.ProviderTransactionID)
}

func TestName(t *testing.T) {
	a := New(Config{Endpoint: "http://example.invalid"})
	assert.Equal(t, "PAYOS", a.Name())
}
