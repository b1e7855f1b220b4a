package worker

import (
	"context"

	"github.com/pawel-modine/AsanaBot/internal/model"
	"github.com/pawel-modine/AsanaBot/internal/queue"
	"github.com/pawel-modine/AsanaBot/internal/reconcile"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// EventProcessor turns one queue message into a sync result.
type EventProcessor interface {
	Process(ctx context.Context, msg queue.Message) (reconcile.Result, error)
}

// Syncer abstracts the reconciliation engine for testability.
type Syncer interface {
	Sync(ctx context.Context, issue model.CanonicalIssue) (reconcile.Result, error)
}

// Ledger is the part of the delivery store the worker writes to.
type Ledger interface {
	RecordAttempt(ctx context.Context, source model.Provider, deliveryID string) error
	MarkSucceeded(ctx context.Context, source model.Provider, deliveryID, outcome string, taskID *string) error
	MarkIgnored(ctx context.Context, source model.Provider, deliveryID, reason string) error
	MarkFailed(ctx context.Context, source model.Provider, deliveryID, errMsg string) error
}
