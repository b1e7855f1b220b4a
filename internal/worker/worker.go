package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pawel-modine/AsanaBot/common/logger"
	"github.com/pawel-modine/AsanaBot/internal/model"
	"github.com/pawel-modine/AsanaBot/internal/queue"
	"github.com/pawel-modine/AsanaBot/internal/reconcile"
	"github.com/pawel-modine/AsanaBot/internal/store"
)

type Config struct {
	MaxAttempts  int
	ErrorBackoff time.Duration
}

type Worker struct {
	consumer  Consumer
	processor EventProcessor
	ledger    Ledger
	cfg       Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, processor EventProcessor, ledger Ledger, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Second
	}
	return &Worker{
		consumer:  consumer,
		processor: processor,
		ledger:    ledger,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "asanabot.worker"})
	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				select {
				case <-ctx.Done():
				case <-w.stopCh:
				case <-time.After(w.cfg.ErrorBackoff):
				}
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.Handle(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message handling failed", "error", err, "message_id", msg.ID)
		}
	}

	return nil
}

// Handle processes a message and applies the retry policy when it fails.
// Exported so the reclaimer runs reclaimed messages the same way.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	if err := w.processMessageSafe(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "message processing failed",
			"error", err,
			"message_id", msg.ID,
			"delivery_id", msg.DeliveryID)
		return w.handleFailedMessage(ctx, msg, err)
	}
	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"delivery_id", msg.DeliveryID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage syncs one message and acks it when the outcome is final.
// Malformed events are acked and recorded as ignored. Any returned error
// leaves the message unacked for handleFailedMessage.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) (err error) {
	source := string(msg.Source)
	ctx, span := logger.StartMessageSpan(ctx, msg.TraceID, "worker.process_message",
		attribute.String("delivery.id", msg.DeliveryID),
		attribute.String("delivery.source", source),
		attribute.Int("delivery.attempt", msg.Attempt),
	)
	defer func() { logger.EndSpan(span, err) }()

	attempt := msg.Attempt
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID:  &msg.ID,
		DeliveryID: &msg.DeliveryID,
		Source:     &source,
		EventType:  &msg.EventType,
		Attempt:    &attempt,
	})

	slog.InfoContext(ctx, "processing message", "task_type", msg.TaskType)

	w.record(ctx, msg, func() error {
		return w.ledger.RecordAttempt(ctx, msg.Source, msg.DeliveryID)
	})

	result, err := w.processor.Process(ctx, msg)
	if err != nil {
		if !errors.Is(err, model.ErrMalformedEvent) {
			return err
		}
		slog.InfoContext(ctx, "not an event for this bot, ignoring", "reason", err)
		w.record(ctx, msg, func() error {
			return w.ledger.MarkIgnored(ctx, msg.Source, msg.DeliveryID, err.Error())
		})
		w.ack(ctx, msg)
		return nil
	}

	span.SetAttributes(attribute.String("sync.outcome", string(result.Outcome)))
	w.record(ctx, msg, func() error {
		return w.ledger.MarkSucceeded(ctx, msg.Source, msg.DeliveryID, string(result.Outcome), result.TaskID())
	})
	w.ack(ctx, msg)

	slog.InfoContext(ctx, "message processed", "outcome", result.Outcome, "moved", result.Moved)
	return nil
}

// handleFailedMessage dead-letters unresolvable workspaces or projects, and
// entities the source no longer has, right away. Everything else is requeued
// until MaxAttempts.
func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) error {
	permanent := errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrSourceNotFound)
	if permanent || msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "sending message to DLQ",
			"message_id", msg.ID,
			"delivery_id", msg.DeliveryID,
			"attempts", msg.Attempt,
			"error", err)
		w.record(ctx, msg, func() error {
			return w.ledger.MarkFailed(ctx, msg.Source, msg.DeliveryID, err.Error())
		})
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			return fmt.Errorf("sending to dlq: %w", dlqErr)
		}
		return nil
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"delivery_id", msg.DeliveryID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		return fmt.Errorf("requeueing: %w", requeueErr)
	}
	return nil
}

func (w *Worker) ack(ctx context.Context, msg queue.Message) {
	if err := w.consumer.Ack(ctx, msg); err != nil {
		// The reclaimer redelivers it; syncing twice is safe.
		slog.WarnContext(ctx, "failed to ACK message", "error", err, "message_id", msg.ID)
	}
}

// record writes to the delivery ledger for webhook messages. Ledger failures
// are logged and never block the sync.
func (w *Worker) record(ctx context.Context, msg queue.Message, fn func() error) {
	if w.ledger == nil || msg.TaskType != queue.TaskTypeWebhook {
		return
	}
	if err := fn(); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, store.ErrNotFound) {
			level = slog.LevelDebug
		}
		slog.Log(ctx, level, "failed to update delivery ledger", "error", err)
	}
}

var _ EventProcessor = (*SyncProcessor)(nil)
var _ Syncer = (*reconcile.Engine)(nil)
