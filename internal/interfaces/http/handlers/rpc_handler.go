package handlers

import (
	"net/http"

	paymentApp "github.com/cassiomorais/paygate/internal/application/payment"
	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/cassiomorais/paygate/internal/interfaces/http/dto"
)

// RPCHandler serves C7, the synchronous request/response surface:
// CreatePaymentIntent and GetPaymentUrlByIdempotencyKey.
type RPCHandler struct {
	engine *paymentApp.Engine
}

func NewRPCHandler(engine *paymentApp.Engine) *RPCHandler {
	return &RPCHandler{engine: engine}
}

// CreatePaymentIntent handles POST /rpc/create-payment-intent.
func (h *RPCHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePaymentIntentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.engine.CreateIntent(r.Context(), paymentApp.CreateIntentRequest{
		OrderCode:      req.OrderCode,
		IdempotencyKey: req.IdempotencyKey,
		AmountCents:    req.AmountCents,
		Currency:       payment.Currency(req.Currency),
		Provider:       payment.Provider(req.Provider),
		RedirectURL:    req.RedirectURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CreatePaymentIntentResponse{PaymentURL: p.PaymentURL})
}

// GetPaymentUrlByIdempotencyKey handles POST /rpc/get-payment-url-by-idempotency-key.
func (h *RPCHandler) GetPaymentUrlByIdempotencyKey(w http.ResponseWriter, r *http.Request) {
	var req dto.GetPaymentUrlByIdempotencyKeyRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.engine.GetByIdempotencyKey(r.Context(), req.IdempotencyKey)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GetPaymentUrlByIdempotencyKeyResponse{
		PaymentURL: p.PaymentURL,
		Status:     string(p.Status),
	})
}
