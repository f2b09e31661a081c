package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// WebhookDelivery is one queued outbound notification for a run event.
// The target URL is snapshotted at enqueue time so reconfiguring the
// endpoint does not re-route deliveries already in flight.
type WebhookDelivery struct {
	ID            string
	RunID         string
	Event         string
	URL           string
	Payload       []byte
	Status        string
	Attempts      int
	NextAttemptAt time.Time
	ResponseCode  int
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const (
	DeliveryPending   = "pending"
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

// Memory implementation

func (m *Memory) EnqueueWebhookDelivery(_ context.Context, d WebhookDelivery) (WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = DeliveryPending
	}
	now := time.Now().UTC()
	if d.NextAttemptAt.IsZero() {
		d.NextAttemptAt = now
	}
	d.CreatedAt = now
	d.UpdatedAt = now
	m.deliveries[d.ID] = d
	m.deliveryOrder = append(m.deliveryOrder, d.ID)
	return d, nil
}

func (m *Memory) DueWebhookDeliveries(_ context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.deliveryOrder {
		d, ok := m.deliveries[id]
		if !ok || d.Status != DeliveryPending || d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, d)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(_ context.Context, id string, delivered bool, nextAttemptAt time.Time, lastError string, responseCode int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.ResponseCode = responseCode
	d.LastError = lastError
	d.UpdatedAt = time.Now().UTC()
	if delivered {
		d.Status = DeliveryDelivered
	} else {
		d.NextAttemptAt = nextAttemptAt
	}
	m.deliveries[id] = d
	return nil
}

func (m *Memory) FailWebhookDelivery(_ context.Context, id, lastError string, responseCode int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = DeliveryFailed
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.UpdatedAt = time.Now().UTC()
	m.deliveries[id] = d
	return nil
}

// Postgres implementation

func (p *Postgres) EnqueueWebhookDelivery(ctx context.Context, d WebhookDelivery) (WebhookDelivery, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = DeliveryPending
	}
	if d.NextAttemptAt.IsZero() {
		d.NextAttemptAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries
        (id, run_id, event, url, payload, status, attempts, next_attempt_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.RunID, d.Event, d.URL, d.Payload, d.Status, d.Attempts, d.NextAttemptAt)
	return d, err
}

func (p *Postgres) DueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `SELECT id, run_id, event, url, payload, status, attempts, next_attempt_at, response_code, COALESCE(last_error, '')
        FROM webhook_deliveries
        WHERE status=$1 AND next_attempt_at <= now()
        ORDER BY next_attempt_at
        LIMIT $2`, DeliveryPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.RunID, &d.Event, &d.URL, &d.Payload, &d.Status,
			&d.Attempts, &d.NextAttemptAt, &d.ResponseCode, &d.LastError); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, delivered bool, nextAttemptAt time.Time, lastError string, responseCode int) error {
	var res sql.Result
	var err error
	if delivered {
		res, err = p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET
            status=$2, attempts=attempts+1, response_code=$3, last_error=$4, updated_at=now()
            WHERE id=$1`, id, DeliveryDelivered, responseCode, nullIfEmpty(lastError))
	} else {
		res, err = p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET
            attempts=attempts+1, next_attempt_at=$2, response_code=$3, last_error=$4, updated_at=now()
            WHERE id=$1`, id, nextAttemptAt, responseCode, nullIfEmpty(lastError))
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id, lastError string, responseCode int) error {
	res, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET
        status=$2, attempts=attempts+1, response_code=$3, last_error=$4, updated_at=now()
        WHERE id=$1`, id, DeliveryFailed, responseCode, nullIfEmpty(lastError))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
