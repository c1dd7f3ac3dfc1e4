package outbox

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cassiomorais/paygate/internal/domain/outbox"
	"github.com/rs/zerolog"
)

// MetricsRecorder is the subset of observability.Metrics the publisher
// needs, so tests can run without a Prometheus registry.
type MetricsRecorder interface {
	SetOutboxPending(n int)
	RecordOutboxPublish(eventType outbox.EventType, result string)
	ObserveOutboxTick(seconds float64)
	RecordOutboxExhausted(eventType outbox.EventType, count int)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) SetOutboxPending(int)                         {}
func (noopMetricsRecorder) RecordOutboxPublish(outbox.EventType, string) {}
func (noopMetricsRecorder) ObserveOutboxTick(float64)                    {}
func (noopMetricsRecorder) RecordOutboxExhausted(outbox.EventType, int)  {}

// BusProducer is the outbound side of the bus (C5): publish one outbox
// record's payload to its routed topic.
type BusProducer interface {
	PublishRecord(ctx context.Context, record *outbox.Record) error
}

// AlertSink receives exhausted outbox records — rows that hit
// maxRetries without a successful publish. The default implementation
// only logs; a real deployment would page on-call instead.
type AlertSink interface {
	Alert(ctx context.Context, records []*outbox.Record)
}

// LogAlertSink logs exhausted records at error level. It is the default
// AlertSink when no paging integration is wired.
type LogAlertSink struct {
	Logger zerolog.Logger
}

func (s LogAlertSink) Alert(ctx context.Context, records []*outbox.Record) {
	for _, r := range records {
		s.Logger.Error().
			Str("outbox_id", r.ID.String()).
			Str("event_type", string(r.EventType)).
			Int("retry_count", r.RetryCount).
			Str("last_error", r.LastError).
			Msg("outbox record exhausted retry budget, needs manual intervention")
	}
}

// Publisher implements C5, the at-least-once delivery loop: poll the
// outbox for unpublished rows, publish each to the bus, mark it
// published on ack, or bump its retry count and leave it for the next
// tick otherwise.
type Publisher struct {
	repo       outbox.Repository
	bus        BusProducer
	logger     zerolog.Logger
	batchSize  int
	maxRetries int
	metrics    MetricsRecorder

	ticking atomic.Bool
}

func NewPublisher(repo outbox.Repository, bus BusProducer, logger zerolog.Logger, batchSize, maxRetries int, metrics MetricsRecorder) *Publisher {
	if metrics == nil {
		metrics = noopMetricsRecorder{}
	}
	return &Publisher{
		repo:       repo,
		bus:        bus,
		logger:     logger,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		metrics:    metrics,
	}
}

// Tick runs one poll-publish cycle. It is safe to call concurrently —
// a tick already in flight causes a later call to return immediately,
// so an overrunning cycle never stacks with the next ticker fire.
func (p *Publisher) Tick(ctx context.Context) {
	if !p.ticking.CompareAndSwap(false, true) {
		p.logger.Debug().Msg("outbox: tick already in progress, skipping")
		return
	}
	defer p.ticking.Store(false)

	start := time.Now()
	defer func() { p.metrics.ObserveOutboxTick(time.Since(start).Seconds()) }()

	records, err := p.repo.FetchUnpublished(ctx, p.batchSize, p.maxRetries)
	if err != nil {
		p.logger.Error().Err(err).Msg("outbox: fetch unpublished failed")
		return
	}
	p.metrics.SetOutboxPending(len(records))

	for _, record := range records {
		if err := p.bus.PublishRecord(ctx, record); err != nil {
			p.logger.Warn().Err(err).
				Str("outbox_id", record.ID.String()).
				Str("event_type", string(record.EventType)).
				Msg("outbox: publish failed, incrementing retry")
			p.metrics.RecordOutboxPublish(record.EventType, "failure")
			if incErr := p.repo.IncrementRetry(ctx, record.ID, outbox.TruncateError(err.Error())); incErr != nil {
				p.logger.Error().Err(incErr).Str("outbox_id", record.ID.String()).Msg("outbox: increment retry failed")
			}
			continue
		}

		if err := p.repo.MarkPublished(ctx, record.ID); err != nil {
			p.logger.Error().Err(err).Str("outbox_id", record.ID.String()).Msg("outbox: mark published failed")
			continue
		}
		p.metrics.RecordOutboxPublish(record.EventType, "success")
	}
}

// Run polls at the given interval until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Cleanup implements the retention half of the outbox lifecycle: delete
// published rows older than retention, on a daily cadence driven by the
// caller.
func (p *Publisher) Cleanup(ctx context.Context, retention time.Duration) {
	n, err := p.repo.DeletePublishedOlderThan(ctx, retention)
	if err != nil {
		p.logger.Error().Err(err).Msg("outbox: cleanup failed")
		return
	}
	if n > 0 {
		p.logger.Info().Int("deleted", n).Msg("outbox: cleaned up published records")
	}
}

// ScanExhausted reports rows that have exhausted their retry budget to
// the configured AlertSink, on an hourly cadence driven by the caller.
func (p *Publisher) ScanExhausted(ctx context.Context, sink AlertSink) {
	records, err := p.repo.FetchExhausted(ctx, p.maxRetries)
	if err != nil {
		p.logger.Error().Err(err).Msg("outbox: fetch exhausted failed")
		return
	}
	if len(records) == 0 {
		return
	}

	byType := make(map[outbox.EventType]int, len(records))
	for _, r := range records {
		byType[r.EventType]++
	}
	for eventType, count := range byType {
		p.metrics.RecordOutboxExhausted(eventType, count)
	}

	sink.Alert(ctx, records)
}
