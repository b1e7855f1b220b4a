package dto

import (
	"time"

	"github.com/pawel-modine/AsanaBot/internal/model"
)

type WebhookAcceptedResponse struct {
	DeliveryID string `json:"delivery_id"`
	LedgerID   int64  `json:"ledger_id,string"`
	Enqueued   bool   `json:"enqueued"`
	Duplicated bool   `json:"duplicated"`
}

type WebhookIgnoredResponse struct {
	Status    string `json:"status"`
	EventType string `json:"event_type,omitempty"`
}

type DeliveryResponse struct {
	ID          int64                `json:"id,string"`
	Source      model.Provider       `json:"source"`
	DeliveryID  string               `json:"delivery_id"`
	EventType   string               `json:"event_type"`
	Status      model.DeliveryStatus `json:"status"`
	Attempts    int                  `json:"attempts"`
	Outcome     *string              `json:"outcome,omitempty"`
	TaskID      *string              `json:"task_id,omitempty"`
	Error       *string              `json:"error,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	ProcessedAt *time.Time           `json:"processed_at,omitempty"`
}

type ListDeliveriesRequest struct {
	Status string `form:"status" binding:"required,oneof=queued succeeded ignored failed"`
	Limit  int32  `form:"limit" binding:"omitempty,min=1,max=500"`
}

func NewDeliveryResponse(d model.Delivery) DeliveryResponse {
	return DeliveryResponse{
		ID:          d.ID,
		Source:      d.Source,
		DeliveryID:  d.DeliveryID,
		EventType:   d.EventType,
		Status:      d.Status,
		Attempts:    d.Attempts,
		Outcome:     d.Outcome,
		TaskID:      d.TaskID,
		Error:       d.Error,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		ProcessedAt: d.ProcessedAt,
	}
}
