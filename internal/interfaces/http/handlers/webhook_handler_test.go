package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	paymentApp "github.com/cassiomorais/paygate/internal/application/payment"
	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/cassiomorais/paygate/internal/providers"
	"github.com/cassiomorais/paygate/internal/testutil"
)

type fakeAdapter struct {
	name             string
	handleCallbackFn func(ctx context.Context, rawBody []byte) (*providers.CallbackOutcome, error)
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) CreatePaymentLink(ctx context.Context, in providers.CreateLinkInput) (*providers.CreateLinkResult, error) {
	return &providers.CreateLinkResult{PaymentURL: "https://provider.example/pay", ProviderTransactionID: "txn_1"}, nil
}

func (a *fakeAdapter) HandleCallback(ctx context.Context, rawBody []byte) (*providers.CallbackOutcome, error) {
	return a.handleCallbackFn(ctx, rawBody)
}

func newWebhookHandler(t *testing.T, adapter *fakeAdapter) (*WebhookHandler, *testutil.MockPaymentRepository) {
	t.Helper()
	payments := testutil.NewMockPaymentRepository()
	outboxRepo := testutil.NewMockOutboxRepository()
	adapters := &testutil.MockAdapterFactory{}
	txManager := testutil.NewMockTransactionManager()
	engine := paymentApp.NewEngine(payments, outboxRepo, adapters, txManager, nil)

	factory := providers.NewFactory(adapter)
	return NewWebhookHandler(engine, factory, nil, nil), payments
}

func TestWebhookHandler_ZaloPay_SuccessfulCallbackCompletesPayment(t *testing.T) {
	p := testutil.NewTestPayment(payment.ProviderZaloPay, 10000)

	adapter := &fakeAdapter{
		name: string(payment.ProviderZaloPay),
		handleCallbackFn: func(ctx context.Context, rawBody []byte) (*providers.CallbackOutcome, error) {
			return &providers.CallbackOutcome{
				Success:               true,
				ProviderTransactionID: p.ProviderTransactionID,
				ResponseBody:          map[string]any{"returncode": 1},
			}, nil
		},
	}
	handler, payments := newWebhookHandler(t, adapter)
	payments.Seed(p)

	req := httptest.NewRequest(http.MethodPost, "/webhook/zalopay", bytes.NewReader([]byte(`{"anything":"goes"}`)))
	rec := httptest.NewRecorder()

	handler.ZaloPay(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	stored, err := payments.FindByIdempotencyKey(context.Background(), p.IdempotencyKey)
	if err != nil {
		t.Fatalf("lookup stored payment: %v", err)
	}
	if stored.Status != payment.StatusCompleted {
		t.Errorf("expected status %s, got %s", payment.StatusCompleted, stored.Status)
	}
}

func TestWebhookHandler_ZaloPay_MalformedPayloadStillReturns200(t *testing.T) {
	adapter := &fakeAdapter{
		name: string(payment.ProviderZaloPay),
		handleCallbackFn: func(ctx context.Context, rawBody []byte) (*providers.CallbackOutcome, error) {
			return nil, errors.New("malformed callback body")
		},
	}
	handler, _ := newWebhookHandler(t, adapter)

	req := httptest.NewRequest(http.MethodPost, "/webhook/zalopay", bytes.NewReader([]byte(`not json`)))
	rec := httptest.NewRecorder()

	handler.ZaloPay(rec, req)

	// A webhook's response is always HTTP 200 regardless of outcome, so the
	// provider never treats a malformed-but-received callback as a reason
	// to retry delivery.
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestWebhookHandler_PayOS_UnresolvableFailureDoesNotTouchState(t *testing.T) {
	p := testutil.NewTestPayment(payment.ProviderPayOS, 5000)

	adapter := &fakeAdapter{
		name: string(payment.ProviderPayOS),
		handleCallbackFn: func(ctx context.Context, rawBody []byte) (*providers.CallbackOutcome, error) {
			return &providers.CallbackOutcome{Success: false, ResponseBody: map[string]any{"error": -1}}, nil
		},
	}
	handler, payments := newWebhookHandler(t, adapter)
	payments.Seed(p)

	req := httptest.NewRequest(http.MethodPost, "/webhook/payos", bytes.NewReader([]byte(`{"anything":"goes"}`)))
	rec := httptest.NewRecorder()

	handler.PayOS(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	stored, err := payments.FindByIdempotencyKey(context.Background(), p.IdempotencyKey)
	if err != nil {
		t.Fatalf("lookup stored payment: %v", err)
	}
	if stored.Status != payment.StatusPending {
		t.Errorf("expected status to remain %s, got %s", payment.StatusPending, stored.Status)
	}
}
