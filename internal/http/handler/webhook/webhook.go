package webhook

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/pawel-modine/AsanaBot/internal/http/dto"
	"github.com/pawel-modine/AsanaBot/internal/service"
)

// traceID prefers the configured header and falls back to the active otelgin span.
func traceID(c *gin.Context, header string) *string {
	id := ""
	if header != "" {
		id = c.GetHeader(header)
	}
	if id == "" {
		if spanCtx := trace.SpanContextFromContext(c.Request.Context()); spanCtx.IsValid() {
			id = spanCtx.TraceID().String()
		}
	}
	if id == "" {
		return nil
	}
	return &id
}

func accepted(c *gin.Context, result *service.EventIngestResult) {
	c.JSON(http.StatusAccepted, dto.WebhookAcceptedResponse{
		DeliveryID: result.Delivery.DeliveryID,
		LedgerID:   result.Delivery.ID,
		Enqueued:   result.Enqueued,
		Duplicated: result.Duplicated,
	})
}

func ignored(c *gin.Context, eventType string) {
	c.JSON(http.StatusOK, dto.WebhookIgnoredResponse{Status: "ignored", EventType: eventType})
}

// ingestFailed answers 400 for events the ingest service refused and 500
// otherwise.
func ingestFailed(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidEvent) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest event"})
}
