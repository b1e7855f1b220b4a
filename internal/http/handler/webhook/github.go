package webhook

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v72/github"

	"github.com/pawel-modine/AsanaBot/internal/model"
	"github.com/pawel-modine/AsanaBot/internal/service"
)

// githubSyncedEvents are the event types whose payloads describe an issue or pull request.
var githubSyncedEvents = map[string]bool{
	"issues":       true,
	"pull_request": true,
}

type GitHubWebhookHandler struct {
	eventIngest service.EventIngestService
	secret      []byte
	traceHeader string
}

func NewGitHubWebhookHandler(eventIngest service.EventIngestService, secret, traceHeader string) *GitHubWebhookHandler {
	return &GitHubWebhookHandler{
		eventIngest: eventIngest,
		secret:      []byte(secret),
		traceHeader: traceHeader,
	}
}

func (h *GitHubWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	payload, err := github.ValidatePayload(c.Request, h.secret)
	if err != nil {
		slog.WarnContext(ctx, "rejected github webhook", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
		return
	}

	eventType := github.WebHookType(c.Request)
	deliveryID := github.DeliveryID(c.Request)

	if eventType == "ping" {
		c.JSON(http.StatusOK, gin.H{"status": "pong"})
		return
	}
	if !githubSyncedEvents[eventType] {
		slog.InfoContext(ctx, "ignoring github event", "event_type", eventType, "delivery_id", deliveryID)
		ignored(c, eventType)
		return
	}

	result, err := h.eventIngest.Ingest(ctx, service.EventIngestParams{
		Source:     model.ProviderGitHub,
		DeliveryID: deliveryID,
		EventType:  eventType,
		Payload:    payload,
		TraceID:    traceID(c, h.traceHeader),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to ingest github event",
			"error", err, "event_type", eventType, "delivery_id", deliveryID)
		ingestFailed(c, err)
		return
	}

	slog.InfoContext(ctx, "github webhook accepted",
		"event_type", eventType,
		"delivery_id", result.Delivery.DeliveryID,
		"ledger_id", result.Delivery.ID,
		"enqueued", result.Enqueued,
		"duplicated", result.Duplicated,
	)
	accepted(c, result)
}
