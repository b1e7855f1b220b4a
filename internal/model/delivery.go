package model

import (
	"encoding/json"
	"time"
)

type DeliveryStatus string

const (
	DeliveryStatusQueued    DeliveryStatus = "queued"
	DeliveryStatusSucceeded DeliveryStatus = "succeeded"
	DeliveryStatusIgnored   DeliveryStatus = "ignored"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// Delivery is one inbound webhook delivery as recorded in the ledger.
type Delivery struct {
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	Error       *string         `json:"error,omitempty"`
	Outcome     *string         `json:"outcome,omitempty"`
	TaskID      *string         `json:"task_id,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Source      Provider        `json:"source"`
	DeliveryID  string          `json:"delivery_id"`
	EventType   string          `json:"event_type"`
	Status      DeliveryStatus  `json:"status"`
	Attempts    int             `json:"attempts"`
	ID          int64           `json:"id"`
}

func (d Delivery) Succeeded() bool {
	return d.Status == DeliveryStatusSucceeded
}
