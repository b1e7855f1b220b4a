package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pawel-modine/AsanaBot/internal/http/dto"
	"github.com/pawel-modine/AsanaBot/internal/model"
	"github.com/pawel-modine/AsanaBot/internal/store"
)

const defaultDeliveryLimit = 50

type DeliveryHandler struct {
	deliveries store.DeliveryStore
}

func NewDeliveryHandler(deliveries store.DeliveryStore) *DeliveryHandler {
	return &DeliveryHandler{deliveries: deliveries}
}

func (h *DeliveryHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ListDeliveriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultDeliveryLimit
	}

	deliveries, err := h.deliveries.ListByStatus(ctx, model.DeliveryStatus(req.Status), req.Limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list deliveries", "error", err, "status", req.Status)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list deliveries"})
		return
	}

	resp := make([]dto.DeliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		resp = append(resp, dto.NewDeliveryResponse(d))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DeliveryHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	source := model.Provider(c.Param("source"))
	switch source {
	case model.ProviderGitHub, model.ProviderGitLab:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source"})
		return
	}

	d, err := h.deliveries.Get(ctx, source, c.Param("delivery_id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "delivery not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to get delivery", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get delivery"})
		return
	}

	c.JSON(http.StatusOK, dto.NewDeliveryResponse(*d))
}
