package testutil

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/domain/outbox"
	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/cassiomorais/paygate/internal/domain/txn"
	"github.com/cassiomorais/paygate/internal/providers"
	"github.com/google/uuid"
)

// --- Payment Repository Mock ---

// MockPaymentRepository is an in-memory fake of payment.Repository.
type MockPaymentRepository struct {
	mu             sync.Mutex
	byID           map[uuid.UUID]*payment.Payment
	byIdempotency  map[string]*payment.Payment
	byOrderCode    map[string]*payment.Payment
	byProviderTxID map[string]*payment.Payment

	InsertPendingFunc func(ctx context.Context, p *payment.Payment) error
	UpdateStatusFunc  func(ctx context.Context, id uuid.UUID, toStatus payment.Status, at time.Time, tx txn.Tx) error
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		byID:           make(map[uuid.UUID]*payment.Payment),
		byIdempotency:  make(map[string]*payment.Payment),
		byOrderCode:    make(map[string]*payment.Payment),
		byProviderTxID: make(map[string]*payment.Payment),
	}
}

// Seed pre-populates the fake with a payment, bypassing InsertPending.
func (m *MockPaymentRepository) Seed(p *payment.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = p
	m.byIdempotency[p.IdempotencyKey] = p
	m.byOrderCode[p.OrderCode] = p
	if p.ProviderTransactionID != "" {
		m.byProviderTxID[p.ProviderTransactionID] = p
	}
}

func (m *MockPaymentRepository) InsertPending(ctx context.Context, p *payment.Payment) error {
	if m.InsertPendingFunc != nil {
		return m.InsertPendingFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byIdempotency[p.IdempotencyKey]; exists {
		return domainErrors.ErrDuplicateIdempotencyKey
	}
	if _, exists := m.byOrderCode[p.OrderCode]; exists {
		return domainErrors.ErrDuplicateOrderCode
	}
	m.byID[p.ID] = p
	m.byIdempotency[p.IdempotencyKey] = p
	m.byOrderCode[p.OrderCode] = p
	if p.ProviderTransactionID != "" {
		m.byProviderTxID[p.ProviderTransactionID] = p
	}
	return nil
}

func (m *MockPaymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byIdempotency[key]
	if !ok {
		return nil, domainErrors.ErrPaymentNotFound
	}
	return p, nil
}

func (m *MockPaymentRepository) FindByOrderCode(ctx context.Context, orderCode string, tx txn.Tx) (*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byOrderCode[orderCode]
	if !ok {
		return nil, domainErrors.ErrPaymentNotFound
	}
	return p, nil
}

func (m *MockPaymentRepository) FindByProviderTransactionID(ctx context.Context, providerTxID string, tx txn.Tx) (*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byProviderTxID[providerTxID]
	if !ok {
		return nil, domainErrors.ErrPaymentNotFound
	}
	return p, nil
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, toStatus payment.Status, at time.Time, tx txn.Tx) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, toStatus, at, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return domainErrors.ErrPaymentNotFound
	}
	if p.Status != payment.StatusPending {
		return domainErrors.ErrStateTransitionConflict
	}
	return p.TransitionTo(toStatus, at)
}

// --- Outbox Repository Mock ---

// MockOutboxRepository is an in-memory fake of outbox.Repository.
type MockOutboxRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]*outbox.Record

	AppendFunc func(ctx context.Context, record *outbox.Record, tx txn.Tx) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{records: make(map[uuid.UUID]*outbox.Record)}
}

func (m *MockOutboxRepository) Append(ctx context.Context, record *outbox.Record, tx txn.Tx) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, record, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record
	return nil
}

func (m *MockOutboxRepository) FetchUnpublished(ctx context.Context, limit, maxRetries int) ([]*outbox.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*outbox.Record
	for _, r := range m.records {
		if !r.Published && r.RetryCount < maxRetries {
			out = append(out, r)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return domainErrors.ErrPaymentNotFound
	}
	r.Published = true
	now := time.Now()
	r.PublishedAt = &now
	return nil
}

func (m *MockOutboxRepository) IncrementRetry(ctx context.Context, id uuid.UUID, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return domainErrors.ErrPaymentNotFound
	}
	r.RetryCount++
	r.LastError = outbox.TruncateError(errorMessage)
	return nil
}

func (m *MockOutboxRepository) DeletePublishedOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	cutoff := time.Now().Add(-retention)
	for id, r := range m.records {
		if r.Published && r.PublishedAt != nil && r.PublishedAt.Before(cutoff) {
			delete(m.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockOutboxRepository) FetchExhausted(ctx context.Context, maxRetries int) ([]*outbox.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*outbox.Record
	for _, r := range m.records {
		if !r.Published && r.RetryCount >= maxRetries {
			out = append(out, r)
		}
	}
	return out, nil
}

// --- Transaction Manager Mock ---

// MockTransactionManager runs fn inline unless overridden, mirroring a
// real TxManager that commits on nil error.
type MockTransactionManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context, tx txn.Tx) error) error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx txn.Tx) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx, nil)
}

// --- Provider Adapter Factory Mock ---

// MockAdapterFactory is a fake of the lifecycle engine's AdapterFactory port.
type MockAdapterFactory struct {
	CreatePaymentLinkFunc func(ctx context.Context, name payment.Provider, in providers.CreateLinkInput) (*providers.CreateLinkResult, error)
}

func (m *MockAdapterFactory) CreatePaymentLink(ctx context.Context, name payment.Provider, in providers.CreateLinkInput) (*providers.CreateLinkResult, error) {
	if m.CreatePaymentLinkFunc != nil {
		return m.CreatePaymentLinkFunc(ctx, name, in)
	}
	return &providers.CreateLinkResult{
		PaymentURL:            "https://provider.example/pay/" + in.OrderCode,
		ProviderTransactionID: "txn_" + in.OrderCode,
	}, nil
}
