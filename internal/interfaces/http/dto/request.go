package dto

// CreatePaymentIntentRequest is the JSON body for POST /rpc/create-payment-intent.
type CreatePaymentIntentRequest struct {
	OrderCode      string `json:"orderCode" validate:"required"`
	AmountCents    int64  `json:"amountCents" validate:"required,gt=0"`
	Currency       string `json:"currency" validate:"required,oneof=VND"`
	Provider       string `json:"provider" validate:"required,oneof=ZALOPAY PAYOS VNPAY"`
	IdempotencyKey string `json:"idempotencyKey" validate:"required"`
	RedirectURL    string `json:"redirectUrl" validate:"required,url"`
	TimeoutSeconds int32  `json:"timeoutSeconds" validate:"required,gt=0"`
}

// GetPaymentUrlByIdempotencyKeyRequest is the JSON body for
// POST /rpc/get-payment-url-by-idempotency-key.
type GetPaymentUrlByIdempotencyKeyRequest struct {
	IdempotencyKey string `json:"idempotencyKey" validate:"required"`
}
