// Package webhooks delivers run event notifications to a configured HTTP
// endpoint. Events are queued through the store and sent by a retrying
// delivery worker; payloads are signed with HMAC-SHA256.
package webhooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"staffplan/internal/store"
)

// Publisher enqueues one delivery per run event. A Publisher with an
// empty URL drops everything, so callers can wire it unconditionally.
type Publisher struct {
	store store.Store
	url   string
	log   zerolog.Logger
}

func NewPublisher(st store.Store, url string) *Publisher {
	return &Publisher{
		store: st,
		url:   url,
		log:   log.With().Str("component", "webhooks").Logger(),
	}
}

// Emit queues an event envelope for delivery. Enqueue failures are logged
// and swallowed; a broken webhook queue must not fail the run.
func (p *Publisher) Emit(ctx context.Context, runID, event string, data map[string]any) {
	if p == nil || p.url == "" {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"id":    uuid.NewString(),
		"type":  event,
		"runId": runID,
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"data":  data,
	})
	if err != nil {
		p.log.Error().Err(err).Str("run_id", runID).Msg("webhook payload marshal failed")
		return
	}
	if _, err := p.store.EnqueueWebhookDelivery(ctx, store.WebhookDelivery{
		RunID:   runID,
		Event:   event,
		URL:     p.url,
		Payload: payload,
	}); err != nil {
		p.log.Error().Err(err).Str("run_id", runID).Str("event", event).Msg("webhook enqueue failed")
	}
}
