package providers

import "context"

// CreateLinkInput carries the fields an adapter needs to mint a payment
// link with the underlying gateway.
type CreateLinkInput struct {
	OrderCode       string
	AmountCents     int64
	Currency        string
	IdempotencyKey  string
	RedirectURL     string
	TimeoutSeconds  int
}

// CreateLinkResult is what a successful createPaymentLink call returns.
type CreateLinkResult struct {
	PaymentURL            string
	ProviderTransactionID string
}

// CallbackOutcome normalizes a provider's webhook callback: whether it
// verified, the provider transaction id to resolve against the store (if
// recoverable), and the exact response body/status the caller must echo
// back to the provider.
type CallbackOutcome struct {
	Success               bool
	ProviderTransactionID string
	ResponseBody          any
}

// Adapter is the uniform capability every provider integration exposes
// (C1). Adapters never touch the store and never construct business
// events; they are deterministic functions of their inputs plus
// configured keys.
type Adapter interface {
	Name() string
	CreatePaymentLink(ctx context.Context, in CreateLinkInput) (*CreateLinkResult, error)
	HandleCallback(ctx context.Context, rawBody []byte) (*CallbackOutcome, error)
}
