package webhook

import (
	"crypto/subtle"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/pawel-modine/AsanaBot/internal/model"
	"github.com/pawel-modine/AsanaBot/internal/service"
)

const gitlabDeliveryHeader = "X-Gitlab-Event-UUID"

type GitLabWebhookHandler struct {
	eventIngest service.EventIngestService
	token       []byte
	traceHeader string
}

func NewGitLabWebhookHandler(eventIngest service.EventIngestService, token, traceHeader string) *GitLabWebhookHandler {
	return &GitLabWebhookHandler{
		eventIngest: eventIngest,
		token:       []byte(token),
		traceHeader: traceHeader,
	}
}

func (h *GitLabWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	secretHeader := c.GetHeader("X-Gitlab-Token")
	if secretHeader == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing webhook token"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(secretHeader), h.token) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook token"})
		return
	}

	eventType := gitlab.HookEventType(c.Request)
	switch eventType {
	case gitlab.EventTypeIssue, gitlab.EventTypeMergeRequest:
	default:
		slog.InfoContext(ctx, "ignoring gitlab event", "event_type", eventType)
		ignored(c, string(eventType))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	deliveryID := c.GetHeader(gitlabDeliveryHeader)
	result, err := h.eventIngest.Ingest(ctx, service.EventIngestParams{
		Source:     model.ProviderGitLab,
		DeliveryID: deliveryID,
		EventType:  string(eventType),
		Payload:    body,
		TraceID:    traceID(c, h.traceHeader),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to ingest gitlab event",
			"error", err, "event_type", eventType, "delivery_id", deliveryID)
		ingestFailed(c, err)
		return
	}

	slog.InfoContext(ctx, "gitlab webhook accepted",
		"event_type", eventType,
		"delivery_id", result.Delivery.DeliveryID,
		"ledger_id", result.Delivery.ID,
		"enqueued", result.Enqueued,
		"duplicated", result.Duplicated,
	)
	accepted(c, result)
}
