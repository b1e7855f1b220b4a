package queue

import "fmt"

// TaskType tells the worker where a message came from. Webhook messages have
// a delivery ledger row; backfill messages do not.
type TaskType string

const (
	TaskTypeWebhook  TaskType = "webhook"
	TaskTypeBackfill TaskType = "backfill"
)

func (t TaskType) valid() bool {
	return t == TaskTypeWebhook || t == TaskTypeBackfill
}

// BackfillDeliveryID names a backfill message for logs and the DLQ.
func BackfillDeliveryID(org, repo string, index int) string {
	return fmt.Sprintf("backfill:%s/%s:%d", org, repo, index)
}
