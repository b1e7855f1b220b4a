package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/pawel-modine/AsanaBot/internal/model"
)

type EventMessage struct {
	TaskType   TaskType
	Source     model.Provider
	DeliveryID string
	EventType  string
	Payload    []byte
	TraceID    *string
	Attempt    int
}

type Producer interface {
	Enqueue(ctx context.Context, msg EventMessage) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, msg EventMessage) error {
	attempt := msg.Attempt
	if attempt <= 0 {
		attempt = 1
	}
	taskType := msg.TaskType
	if taskType == "" {
		taskType = TaskTypeWebhook
	}

	fields := map[string]any{
		"task_type":   string(taskType),
		"source":      string(msg.Source),
		"delivery_id": msg.DeliveryID,
		"event_type":  msg.EventType,
		"payload":     string(msg.Payload),
		"attempt":     attempt,
	}

	if msg.TraceID != nil && *msg.TraceID != "" {
		fields["trace_id"] = *msg.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue event: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued event",
		"task_type", taskType, "source", msg.Source, "delivery_id", msg.DeliveryID,
		"event_type", msg.EventType, "attempt", attempt)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
