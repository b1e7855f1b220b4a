package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pawel-modine/AsanaBot/common/logger"
	"github.com/pawel-modine/AsanaBot/internal/queue"
)

// StreamClaimer is the XAUTOCLAIM call the reclaimer needs. *redis.Client
// satisfies it.
type StreamClaimer interface {
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
}

type RedisReclaimerConfig struct {
	Stream    string
	Group     string
	Consumer  string
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
}

// RedisReclaimer takes over deliveries that another worker read but never
// acked and hands them to the same handler the read loop uses, so the
// requeue and dead-letter policy applies to them too.
type RedisReclaimer struct {
	claimer  StreamClaimer
	cfg      RedisReclaimerConfig
	consumer Consumer
	handle   queue.MessageProcessor

	stop chan struct{}
	done chan struct{}
}

func NewRedisReclaimer(claimer StreamClaimer, cfg RedisReclaimerConfig, consumer Consumer, handle queue.MessageProcessor) *RedisReclaimer {
	return &RedisReclaimer{
		claimer:  claimer,
		cfg:      cfg,
		consumer: consumer,
		handle:   handle,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run sweeps the group every Interval until ctx ends or Stop is called.
func (r *RedisReclaimer) Run(ctx context.Context) {
	defer close(r.done)
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "asanabot.worker.reclaimer"})

	slog.InfoContext(ctx, "reclaimer started",
		"stream", r.cfg.Stream,
		"group", r.cfg.Group,
		"min_idle", r.cfg.MinIdle,
		"interval", r.cfg.Interval)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			n, err := r.Sweep(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "reclaim sweep failed", "error", err, "reclaimed", n)
			}
		}
	}
}

func (r *RedisReclaimer) Stop() {
	close(r.stop)
	<-r.done
}

// Sweep claims every entry idle for at least MinIdle, paging the XAUTOCLAIM
// cursor until it wraps to "0-0", and returns how many it handled.
func (r *RedisReclaimer) Sweep(ctx context.Context) (int, error) {
	handled := 0
	cursor := "0-0"
	for {
		claimed, next, err := r.claimer.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   r.cfg.Stream,
			Group:    r.cfg.Group,
			Consumer: r.cfg.Consumer,
			MinIdle:  r.cfg.MinIdle,
			Start:    cursor,
			Count:    r.cfg.BatchSize,
		}).Result()
		if err != nil {
			return handled, fmt.Errorf("xautoclaim %s: %w", r.cfg.Stream, err)
		}

		for _, raw := range claimed {
			r.redeliver(ctx, raw)
			handled++
		}

		if next == "" || next == "0-0" || ctx.Err() != nil {
			return handled, ctx.Err()
		}
		cursor = next
	}
}

func (r *RedisReclaimer) redeliver(ctx context.Context, raw redis.XMessage) {
	id := raw.ID
	ctx = logger.WithLogFields(ctx, logger.LogFields{MessageID: &id})

	msg, err := queue.ParseMessage(raw)
	if err != nil {
		// Unparseable entries would be claimed again on every sweep.
		slog.ErrorContext(ctx, "dropping unparseable stale message", "error", err)
		if ackErr := r.consumer.Ack(ctx, queue.Message{ID: raw.ID, Raw: raw}); ackErr != nil {
			slog.ErrorContext(ctx, "failed to ack stale message", "error", ackErr)
		}
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{DeliveryID: &msg.DeliveryID})
	slog.InfoContext(ctx, "redelivering stale message", "attempt", msg.Attempt)

	start := time.Now()
	if err := r.handle(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "stale message handling failed", "error", err)
		return
	}
	slog.DebugContext(ctx, "stale message handled", "duration_ms", time.Since(start).Milliseconds())
}
