package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pawel-modine/AsanaBot/core/db"
	"github.com/pawel-modine/AsanaBot/internal/model"
)

const deliveryColumns = `id, source, delivery_id, event_type, payload, status, attempts,
	outcome, task_id, error, processed_at, created_at, updated_at`

type deliveryStore struct {
	q db.Querier
}

func newDeliveryStore(q db.Querier) DeliveryStore {
	return &deliveryStore{q: q}
}

// CreateOrGet inserts the delivery or returns the existing row for the same
// source and delivery id. A redelivered row that never succeeded is put back
// into the queued state. The bool reports whether a new row was created.
func (s *deliveryStore) CreateOrGet(ctx context.Context, d *model.Delivery) (*model.Delivery, bool, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO webhook_deliveries (id, source, delivery_id, event_type, payload, status)
		VALUES ($1, $2, $3, $4, $5, 'queued')
		ON CONFLICT (source, delivery_id) DO UPDATE
		SET status = CASE WHEN webhook_deliveries.status = 'succeeded'
		                  THEN webhook_deliveries.status ELSE 'queued' END,
		    updated_at = now()
		RETURNING `+deliveryColumns,
		d.ID, string(d.Source), d.DeliveryID, d.EventType, []byte(d.Payload),
	)

	saved, err := scanDelivery(row)
	if err != nil {
		return nil, false, fmt.Errorf("upserting delivery: %w", err)
	}
	return saved, saved.ID == d.ID, nil
}

func (s *deliveryStore) Get(ctx context.Context, source model.Provider, deliveryID string) (*model.Delivery, error) {
	row := s.q.QueryRow(ctx, `SELECT `+deliveryColumns+`
		FROM webhook_deliveries WHERE source = $1 AND delivery_id = $2`,
		string(source), deliveryID,
	)
	d, err := scanDelivery(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (s *deliveryStore) RecordAttempt(ctx context.Context, source model.Provider, deliveryID string) error {
	return s.exec(ctx, `UPDATE webhook_deliveries
		SET attempts = attempts + 1, updated_at = now()
		WHERE source = $1 AND delivery_id = $2`,
		string(source), deliveryID,
	)
}

func (s *deliveryStore) MarkSucceeded(ctx context.Context, source model.Provider, deliveryID, outcome string, taskID *string) error {
	return s.exec(ctx, `UPDATE webhook_deliveries
		SET status = 'succeeded', outcome = $3, task_id = $4, error = NULL,
		    processed_at = now(), updated_at = now()
		WHERE source = $1 AND delivery_id = $2`,
		string(source), deliveryID, outcome, taskID,
	)
}

func (s *deliveryStore) MarkIgnored(ctx context.Context, source model.Provider, deliveryID, reason string) error {
	return s.exec(ctx, `UPDATE webhook_deliveries
		SET status = 'ignored', error = $3, processed_at = now(), updated_at = now()
		WHERE source = $1 AND delivery_id = $2`,
		string(source), deliveryID, reason,
	)
}

func (s *deliveryStore) MarkFailed(ctx context.Context, source model.Provider, deliveryID, errMsg string) error {
	return s.exec(ctx, `UPDATE webhook_deliveries
		SET status = 'failed', error = $3, processed_at = now(), updated_at = now()
		WHERE source = $1 AND delivery_id = $2`,
		string(source), deliveryID, errMsg,
	)
}

func (s *deliveryStore) ListByStatus(ctx context.Context, status model.DeliveryStatus, limit int32) ([]model.Delivery, error) {
	rows, err := s.q.Query(ctx, `SELECT `+deliveryColumns+`
		FROM webhook_deliveries WHERE status = $1
		ORDER BY created_at DESC LIMIT $2`,
		string(status), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries: %w", err)
	}
	defer rows.Close()

	result := make([]model.Delivery, 0)
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (s *deliveryStore) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDelivery(row pgx.Row) (*model.Delivery, error) {
	var (
		d           model.Delivery
		source      string
		status      string
		payload     []byte
		processedAt *time.Time
	)
	if err := row.Scan(
		&d.ID, &source, &d.DeliveryID, &d.EventType, &payload, &status, &d.Attempts,
		&d.Outcome, &d.TaskID, &d.Error, &processedAt, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.Source = model.Provider(source)
	d.Status = model.DeliveryStatus(status)
	d.Payload = json.RawMessage(payload)
	d.ProcessedAt = processedAt
	return &d, nil
}
