package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	paymentApp "github.com/cassiomorais/paygate/internal/application/payment"
	domainErrors "github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/cassiomorais/paygate/internal/infrastructure/observability"
	redislock "github.com/cassiomorais/paygate/internal/infrastructure/redis"
	"github.com/cassiomorais/paygate/internal/providers"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// webhookDedupTTL bounds how long a webhook-dedup lock is held. The lock
// does not stop a concurrent delivery for the same transaction from being
// processed (withDedupLock runs fn either way); the conditional status
// update in the Postgres transaction is authoritative.
const webhookDedupTTL = 10 * time.Second

// WebhookHandler serves C6: it decodes a provider's callback body,
// dispatches to that provider's adapter, and drives the lifecycle
// engine from the normalized outcome.
type WebhookHandler struct {
	engine      *paymentApp.Engine
	adapters    *providers.Factory
	redisClient *redis.Client
	metrics     *observability.Metrics
}

func NewWebhookHandler(engine *paymentApp.Engine, adapters *providers.Factory, redisClient *redis.Client, metrics *observability.Metrics) *WebhookHandler {
	return &WebhookHandler{engine: engine, adapters: adapters, redisClient: redisClient, metrics: metrics}
}

func (h *WebhookHandler) recordOutcome(name payment.Provider, outcome string) {
	if h.metrics == nil {
		return
	}
	h.metrics.WebhooksReceived.WithLabelValues(string(name), outcome).Inc()
}

// ZaloPay handles POST /webhook/zalopay.
func (h *WebhookHandler) ZaloPay(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, payment.ProviderZaloPay)
}

// PayOS handles POST /webhook/payos.
func (h *WebhookHandler) PayOS(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, payment.ProviderPayOS)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request, name payment.Provider) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error().Err(err).Str("provider", string(name)).Msg("webhook: failed to read body")
		h.recordOutcome(name, "unreadable")
		writeJSON(w, http.StatusOK, map[string]any{"error": -1, "message": "unreadable body"})
		return
	}

	adapter, err := h.adapters.Get(name)
	if err != nil {
		log.Error().Err(err).Str("provider", string(name)).Msg("webhook: unsupported provider")
		h.recordOutcome(name, "unsupported")
		writeJSON(w, http.StatusOK, map[string]any{"error": -1, "message": "unsupported provider"})
		return
	}

	outcome, err := adapter.HandleCallback(r.Context(), body)
	if err != nil {
		log.Error().Err(err).Str("provider", string(name)).Msg("webhook: malformed callback")
		h.recordOutcome(name, "malformed")
		writeJSON(w, http.StatusOK, map[string]any{"error": -1, "message": "malformed payload"})
		return
	}

	if outcome.ProviderTransactionID != "" {
		h.withDedupLock(r.Context(), name, outcome.ProviderTransactionID, func() {
			h.applyOutcome(r.Context(), name, outcome)
		})
	} else if !outcome.Success {
		log.Warn().Str("provider", string(name)).Msg("webhook: failure with no recoverable transaction id, not touching state")
		h.recordOutcome(name, "unresolvable")
	}

	writeJSON(w, http.StatusOK, outcome.ResponseBody)
}

func (h *WebhookHandler) applyOutcome(ctx context.Context, name payment.Provider, outcome *providers.CallbackOutcome) {
	var err error
	if outcome.Success {
		err = h.engine.CompleteByProviderTransactionID(ctx, outcome.ProviderTransactionID, nil)
	} else {
		err = h.engine.FailByProviderTransactionID(ctx, outcome.ProviderTransactionID, nil)
	}
	switch {
	case err == nil:
		h.recordOutcome(name, "applied")
	case errors.Is(err, domainErrors.ErrStateTransitionConflict):
		log.Warn().Err(err).Str("provider", string(name)).Str("providerTransactionId", outcome.ProviderTransactionID).
			Msg("webhook: lifecycle transition did not apply")
		h.recordOutcome(name, "conflict")
	default:
		log.Warn().Err(err).Str("provider", string(name)).Str("providerTransactionId", outcome.ProviderTransactionID).
			Msg("webhook: lifecycle transition did not apply")
		h.recordOutcome(name, "error")
	}
}

// withDedupLock acquires the Redis lock on a best-effort basis and always
// runs fn, even when acquisition fails — the lock is a latency
// optimization, never a correctness gate.
func (h *WebhookHandler) withDedupLock(ctx context.Context, name payment.Provider, providerTxID string, fn func()) {
	if h.redisClient == nil {
		fn()
		return
	}

	lock := redislock.NewDistributedLock(h.redisClient, "webhook:"+string(name)+":"+providerTxID, webhookDedupTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("webhook: dedup lock acquisition failed, proceeding anyway")
		fn()
		return
	}
	if !acquired {
		log.Debug().Str("provider", string(name)).Str("providerTransactionId", providerTxID).
			Msg("webhook: dedup lock already held, proceeding anyway")
		fn()
		return
	}
	defer func() { _ = lock.Release(ctx) }()
	fn()
}
