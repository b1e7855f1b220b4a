package store

import (
	"context"
	"errors"

	"github.com/pawel-modine/AsanaBot/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// DeliveryStore defines the contract for the webhook delivery ledger
type DeliveryStore interface {
	CreateOrGet(ctx context.Context, d *model.Delivery) (*model.Delivery, bool, error)
	Get(ctx context.Context, source model.Provider, deliveryID string) (*model.Delivery, error)
	RecordAttempt(ctx context.Context, source model.Provider, deliveryID string) error
	MarkSucceeded(ctx context.Context, source model.Provider, deliveryID, outcome string, taskID *string) error
	MarkIgnored(ctx context.Context, source model.Provider, deliveryID, reason string) error
	MarkFailed(ctx context.Context, source model.Provider, deliveryID, errMsg string) error
	ListByStatus(ctx context.Context, status model.DeliveryStatus, limit int32) ([]model.Delivery, error)
}
