package providers

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/sony/gobreaker/v2"
)

// Factory registers one Adapter per provider and wraps its
// CreatePaymentLink call in a circuit breaker so a gateway outage
// surfaces quickly as ProviderUnavailable instead of piling up timeouts.
type Factory struct {
	adapters map[payment.Provider]Adapter
	breakers map[payment.Provider]*gobreaker.CircuitBreaker[*CreateLinkResult]
}

// NewFactory builds a factory pre-registered with the given adapters.
func NewFactory(adapters ...Adapter) *Factory {
	f := &Factory{
		adapters: make(map[payment.Provider]Adapter),
		breakers: make(map[payment.Provider]*gobreaker.CircuitBreaker[*CreateLinkResult]),
	}
	for _, a := range adapters {
		f.Register(payment.Provider(a.Name()), a)
	}
	return f
}

// Register adds or replaces the adapter for a provider.
func (f *Factory) Register(name payment.Provider, a Adapter) {
	f.adapters[name] = a
	f.breakers[name] = gobreaker.NewCircuitBreaker[*CreateLinkResult](gobreaker.Settings{
		Name:        string(name),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
}

// Get returns the adapter for a provider, or ErrUnsupportedProvider.
func (f *Factory) Get(name payment.Provider) (Adapter, error) {
	a, ok := f.adapters[name]
	if !ok {
		return nil, domainErrors.ErrUnsupportedProvider
	}
	return a, nil
}

// CreatePaymentLink runs the adapter's CreatePaymentLink through its
// circuit breaker, translating a tripped breaker into ProviderUnavailable.
func (f *Factory) CreatePaymentLink(ctx context.Context, name payment.Provider, in CreateLinkInput) (*CreateLinkResult, error) {
	a, ok := f.adapters[name]
	if !ok {
		return nil, domainErrors.ErrUnsupportedProvider
	}
	breaker := f.breakers[name]

	result, err := breaker.Execute(func() (*CreateLinkResult, error) {
		return a.CreatePaymentLink(ctx, in)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%s: %w", name, domainErrors.ErrProviderUnavailable)
		}
		return nil, err
	}
	return result, nil
}
