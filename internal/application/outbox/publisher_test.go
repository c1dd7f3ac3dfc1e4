package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cassiomorais/paygate/internal/domain/outbox"
	"github.com/cassiomorais/paygate/internal/domain/txn"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	unpublished      []*outbox.Record
	published        map[uuid.UUID]bool
	retryIncrements  map[uuid.UUID]int
	exhausted        []*outbox.Record
	deletedRetention time.Duration
	deleteCount      int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{published: map[uuid.UUID]bool{}, retryIncrements: map[uuid.UUID]int{}}
}

func (f *fakeRepo) Append(ctx context.Context, record *outbox.Record, tx txn.Tx) error { return nil }

func (f *fakeRepo) FetchUnpublished(ctx context.Context, limit, maxRetries int) ([]*outbox.Record, error) {
	return f.unpublished, nil
}

func (f *fakeRepo) MarkPublished(ctx context.Context, id uuid.UUID) error {
	f.published[id] = true
	return nil
}

func (f *fakeRepo) IncrementRetry(ctx context.Context, id uuid.UUID, errorMessage string) error {
	f.retryIncrements[id]++
	return nil
}

func (f *fakeRepo) DeletePublishedOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	f.deletedRetention = retention
	return f.deleteCount, nil
}

func (f *fakeRepo) FetchExhausted(ctx context.Context, maxRetries int) ([]*outbox.Record, error) {
	return f.exhausted, nil
}

type fakeBus struct {
	published []*outbox.Record
	failFor   map[uuid.UUID]error
}

func (b *fakeBus) PublishRecord(ctx context.Context, record *outbox.Record) error {
	if err, ok := b.failFor[record.ID]; ok {
		return err
	}
	b.published = append(b.published, record)
	return nil
}

type fakeAlertSink struct {
	alerted []*outbox.Record
}

func (s *fakeAlertSink) Alert(ctx context.Context, records []*outbox.Record) {
	s.alerted = append(s.alerted, records...)
}

type fakeMetricsRecorder struct {
	pending         int
	published       map[outbox.EventType]string
	ticks           int
	exhaustedByType map[outbox.EventType]int
}

func newFakeMetricsRecorder() *fakeMetricsRecorder {
	return &fakeMetricsRecorder{published: map[outbox.EventType]string{}, exhaustedByType: map[outbox.EventType]int{}}
}

func (f *fakeMetricsRecorder) SetOutboxPending(n int) { f.pending = n }
func (f *fakeMetricsRecorder) RecordOutboxPublish(eventType outbox.EventType, result string) {
	f.published[eventType] = result
}
func (f *fakeMetricsRecorder) ObserveOutboxTick(seconds float64) { f.ticks++ }
func (f *fakeMetricsRecorder) RecordOutboxExhausted(eventType outbox.EventType, count int) {
	f.exhaustedByType[eventType] = count
}

func TestTick_PublishesAndMarksPublished(t *testing.T) {
	repo := newFakeRepo()
	record := outbox.NewPaymentRecord(uuid.New(), outbox.EventPaymentCompleted, nil)
	repo.unpublished = []*outbox.Record{record}
	bus := &fakeBus{}

	p := NewPublisher(repo, bus, zerolog.Nop(), 10, 5, nil)
	p.Tick(context.Background())

	assert.True(t, repo.published[record.ID])
	require.Len(t, bus.published, 1)
	assert.Equal(t, record.ID, bus.published[0].ID)
}

func TestTick_PublishFailureIncrementsRetryInsteadOfMarkingPublished(t *testing.T) {
	repo := newFakeRepo()
	record := outbox.NewPaymentRecord(uuid.New(), outbox.EventPaymentFailed, nil)
	repo.unpublished = []*outbox.Record{record}
	bus := &fakeBus{failFor: map[uuid.UUID]error{record.ID: errors.New("broker unavailable")}}

	p := NewPublisher(repo, bus, zerolog.Nop(), 10, 5, nil)
	p.Tick(context.Background())

	assert.False(t, repo.published[record.ID])
	assert.Equal(t, 1, repo.retryIncrements[record.ID])
}

func TestTick_ConcurrentTickSkipsWhileOneInFlight(t *testing.T) {
	repo := newFakeRepo()
	bus := &fakeBus{}
	p := NewPublisher(repo, bus, zerolog.Nop(), 10, 5, nil)

	p.ticking.Store(true)
	p.Tick(context.Background())

	assert.Empty(t, bus.published)
}

func TestCleanup_DeletesOlderThanRetention(t *testing.T) {
	repo := newFakeRepo()
	repo.deleteCount = 3
	bus := &fakeBus{}
	p := NewPublisher(repo, bus, zerolog.Nop(), 10, 5, nil)

	p.Cleanup(context.Background(), 30*24*time.Hour)

	assert.Equal(t, 30*24*time.Hour, repo.deletedRetention)
}

func TestScanExhausted_AlertsSinkWithExhaustedRecords(t *testing.T) {
	repo := newFakeRepo()
	exhausted := outbox.NewPaymentRecord(uuid.New(), outbox.EventPaymentCancelled, nil)
	repo.exhausted = []*outbox.Record{exhausted}
	bus := &fakeBus{}
	p := NewPublisher(repo, bus, zerolog.Nop(), 10, 5, nil)
	sink := &fakeAlertSink{}

	p.ScanExhausted(context.Background(), sink)

	require.Len(t, sink.alerted, 1)
	assert.Equal(t, exhausted.ID, sink.alerted[0].ID)
}

func TestScanExhausted_NoExhaustedRecordsDoesNotCallSink(t *testing.T) {
	repo := newFakeRepo()
	bus := &fakeBus{}
	p := NewPublisher(repo, bus, zerolog.Nop(), 10, 5, nil)
	sink := &fakeAlertSink{}

	p.ScanExhausted(context.Background(), sink)

	assert.Empty(t, sink.alerted)
}

func TestTick_RecordsPendingCountAndPublishResult(t *testing.T) {
	repo := newFakeRepo()
	record := outbox.NewPaymentRecord(uuid.New(), outbox.EventPaymentCompleted, nil)
	repo.unpublished = []*outbox.Record{record}
	bus := &fakeBus{}
	metrics := newFakeMetricsRecorder()

	p := NewPublisher(repo, bus, zerolog.Nop(), 10, 5, metrics)
	p.Tick(context.Background())

	assert.Equal(t, 1, metrics.pending)
	assert.Equal(t, "success", metrics.published[outbox.EventPaymentCompleted])
	assert.Equal(t, 1, metrics.ticks)
}

func TestTick_RecordsPublishFailureResult(t *testing.T) {
	repo := newFakeRepo()
	record := outbox.NewPaymentRecord(uuid.New(), outbox.EventPaymentFailed, nil)
	repo.unpublished = []*outbox.Record{record}
	bus := &fakeBus{failFor: map[uuid.UUID]error{record.ID: errors.New("broker unavailable")}}
	metrics := newFakeMetricsRecorder()

	p := NewPublisher(repo, bus, zerolog.Nop(), 10, 5, metrics)
	p.Tick(context.Background())

	assert.Equal(t, "failure", metrics.published[outbox.EventPaymentFailed])
}

func TestScanExhausted_RecordsCountPerEventType(t *testing.T) {
	repo := newFakeRepo()
	repo.exhausted = []*outbox.Record{
		outbox.NewPaymentRecord(uuid.New(), outbox.EventPaymentCancelled, nil),
		outbox.NewPaymentRecord(uuid.New(), outbox.EventPaymentCancelled, nil),
		outbox.NewPaymentRecord(uuid.New(), outbox.EventPaymentFailed, nil),
	}
	bus := &fakeBus{}
	metrics := newFakeMetricsRecorder()
	p := NewPublisher(repo, bus, zerolog.Nop(), 10, 5, metrics)

	p.ScanExhausted(context.Background(), &fakeAlertSink{})

	assert.Equal(t, 2, metrics.exhaustedByType[outbox.EventPaymentCancelled])
	assert.Equal(t, 1, metrics.exhaustedByType[outbox.EventPaymentFailed])
}
