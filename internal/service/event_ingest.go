package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pawel-modine/AsanaBot/common/id"
	"github.com/pawel-modine/AsanaBot/internal/model"
	"github.com/pawel-modine/AsanaBot/internal/queue"
)

type EventIngestParams struct {
	Source     model.Provider  `json:"source"`
	DeliveryID string          `json:"delivery_id,omitempty"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`

	TraceID *string `json:"trace_id,omitempty"`
}

type EventIngestResult struct {
	Delivery   *model.Delivery
	Enqueued   bool
	Duplicated bool
}

type EventIngestService interface {
	Ingest(ctx context.Context, params EventIngestParams) (*EventIngestResult, error)
}

var ErrInvalidEvent = errors.New("invalid event")

type eventIngestService struct {
	txRunner TxRunner
	queue    queue.Producer
	logger   *slog.Logger
}

func NewEventIngestService(txRunner TxRunner, queue queue.Producer, logger *slog.Logger) EventIngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &eventIngestService{
		txRunner: txRunner,
		queue:    queue,
		logger:   logger,
	}
}

// Ingest records the delivery in the ledger and enqueues it for the worker.
// A redelivery of something that already synced successfully is not
// enqueued again; anything else is, since syncing is idempotent.
func (s *eventIngestService) Ingest(ctx context.Context, params EventIngestParams) (*EventIngestResult, error) {
	if params.Source == "" || params.EventType == "" {
		return nil, fmt.Errorf("%w: source and event_type are required", ErrInvalidEvent)
	}
	if len(params.Payload) == 0 {
		return nil, fmt.Errorf("%w: payload is required", ErrInvalidEvent)
	}

	deliveryID, err := computeDeliveryID(params)
	if err != nil {
		return nil, err
	}

	var (
		delivery *model.Delivery
		created  bool
	)
	if err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		var err error
		delivery, created, err = sp.Deliveries().CreateOrGet(ctx, &model.Delivery{
			ID:         id.New(),
			Source:     params.Source,
			DeliveryID: deliveryID,
			EventType:  params.EventType,
			Payload:    params.Payload,
		})
		if err != nil {
			return fmt.Errorf("recording delivery: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if !created && delivery.Succeeded() {
		s.logger.InfoContext(ctx, "duplicate delivery already synced",
			"delivery_id", deliveryID, "source", params.Source, "outcome", delivery.Outcome)
		return &EventIngestResult{Delivery: delivery, Duplicated: true}, nil
	}

	if err := s.queue.Enqueue(ctx, queue.EventMessage{
		TaskType:   queue.TaskTypeWebhook,
		Source:     params.Source,
		DeliveryID: deliveryID,
		EventType:  params.EventType,
		Payload:    params.Payload,
		TraceID:    params.TraceID,
		Attempt:    1,
	}); err != nil {
		return nil, fmt.Errorf("enqueueing event: %w", err)
	}

	return &EventIngestResult{
		Delivery:   delivery,
		Enqueued:   true,
		Duplicated: !created,
	}, nil
}

// computeDeliveryID falls back to a content hash when the source sent no
// delivery header, so identical redeliveries still collapse onto one row.
func computeDeliveryID(params EventIngestParams) (string, error) {
	if params.DeliveryID != "" {
		return params.DeliveryID, nil
	}

	body := struct {
		Source    model.Provider  `json:"source"`
		EventType string          `json:"event_type"`
		Payload   json.RawMessage `json:"payload,omitempty"`
	}{
		Source:    params.Source,
		EventType: params.EventType,
		Payload:   params.Payload,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal delivery payload: %w", err)
	}

	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:]), nil
}
