// Package vnpay reserves the VNPay provider slot. Integration has not
// shipped; every call fails with a typed unsupported-provider error so
// the factory and lifecycle engine can treat it uniformly with a real
// adapter rather than special-casing a missing registration.
package vnpay

import (
	"context"

	domainErrors "github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/providers"
)

const providerName = "VNPAY"

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (a *Adapter) Name() string { return providerName }

func (a *Adapter) CreatePaymentLink(ctx context.Context, in providers.CreateLinkInput) (*providers.CreateLinkResult, error) {
	return nil, domainErrors.ErrUnsupportedProvider
}

func (a *Adapter) HandleCallback(ctx context.Context, rawBody []byte) (*providers.CallbackOutcome, error) {
	return nil, domainErrors.ErrUnsupportedProvider
}
