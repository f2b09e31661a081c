package webhooks

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"staffplan/internal/store"
)

const deliveryBatch = 50

// Worker drains the webhook delivery queue on a ticker. On a non-2xx
// response the delivery is rescheduled with exponential backoff until
// MaxAttempts, then parked as failed.
type Worker struct {
	Store       store.Store
	HTTP        *http.Client
	Secret      string
	MaxAttempts int

	interval time.Duration
	log      zerolog.Logger
}

func NewWorker(st store.Store, secret string) *Worker {
	return &Worker{
		Store:       st,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		Secret:      secret,
		MaxAttempts: 10,
		interval:    time.Second,
		log:         log.With().Str("component", "webhooks").Logger(),
	}
}

// Run delivers due webhooks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.log.Info().Msg("webhook delivery worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("webhook delivery worker stopped")
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce attempts every due delivery once and returns how many were
// attempted.
func (w *Worker) ProcessOnce(ctx context.Context) int {
	items, err := w.Store.DueWebhookDeliveries(ctx, deliveryBatch)
	if err != nil {
		w.log.Error().Err(err).Msg("fetching due deliveries failed")
		return 0
	}
	for _, d := range items {
		w.attempt(ctx, d)
	}
	return len(items)
}

func (w *Worker) attempt(ctx context.Context, d store.WebhookDelivery) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(d.Payload))
	if err != nil {
		_ = w.Store.FailWebhookDelivery(ctx, d.ID, err.Error(), 0)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", d.Event)
	if w.Secret != "" {
		req.Header.Set("X-Signature", SignHMAC(w.Secret, d.Payload))
	}

	code := 0
	lastErr := ""
	resp, err := w.HTTP.Do(req)
	if err != nil {
		lastErr = err.Error()
	} else {
		code = resp.StatusCode
		_ = resp.Body.Close()
	}
	if code >= 200 && code < 300 {
		if err := w.Store.MarkWebhookDelivery(ctx, d.ID, true, time.Time{}, "", code); err != nil {
			w.log.Error().Err(err).Str("delivery_id", d.ID).Msg("marking delivery failed")
		}
		return
	}

	if d.Attempts+1 >= w.MaxAttempts {
		w.log.Warn().Str("delivery_id", d.ID).Str("run_id", d.RunID).Int("attempts", d.Attempts+1).Msg("webhook delivery gave up")
		_ = w.Store.FailWebhookDelivery(ctx, d.ID, lastErr, code)
		return
	}
	next := time.Now().Add(nextBackoff(d.Attempts))
	_ = w.Store.MarkWebhookDelivery(ctx, d.ID, false, next, lastErr, code)
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	d := time.Second * time.Duration(1<<attempts)
	if d > time.Hour {
		d = time.Hour
	}
	return d
}
