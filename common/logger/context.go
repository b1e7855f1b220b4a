package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so business context (delivery_id,
// external_id, etc.) is included in every log statement without passing it around.
type LogFields struct {
	DeliveryID *string // Webhook delivery id (X-GitHub-Delivery / X-Gitlab-Event-UUID)
	MessageID  *string // Redis stream message ID
	Source     *string // Source system ("github", "gitlab")
	EventType  *string // Source event type (e.g., "issues", "pull_request")
	ExternalID *string // Destination correlation key, e.g. "Acme-widgets-7"
	Attempt    *int    // Delivery attempt from the queue message
	Component  string  // Component name, e.g. "asanabot.worker"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.DeliveryID != nil {
		result.DeliveryID = new.DeliveryID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.Source != nil {
		result.Source = new.Source
	}
	if new.EventType != nil {
		result.EventType = new.EventType
	}
	if new.ExternalID != nil {
		result.ExternalID = new.ExternalID
	}
	if new.Attempt != nil {
		result.Attempt = new.Attempt
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{MessageID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
