package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mdnair2344/greenbasket/internal/domain/model"
	"github.com/mdnair2344/greenbasket/internal/server/http/dto"
)

const heartbeatInterval = 15 * time.Second

// OrderHandler manages order-related endpoints.
type OrderHandler struct {
	facade    OrderFacade
	heartbeat time.Duration
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade, heartbeat: heartbeatInterval}
}

// Pending handles GET /api/producer/orders/pending as a server-sent event
// stream. The current pending set arrives first as "added" events.
func (h *OrderHandler) Pending(c *gin.Context) {
	ctx := c.Request.Context()
	sub, err := h.facade.WatchPending(ctx, CurrentProducerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			c.SSEvent("heartbeat", time.Now().UTC().Format(time.RFC3339))
			return true
		case delta, ok := <-sub.Deltas():
			if !ok {
				if err := sub.Err(); err != nil {
					_ = c.Error(err)
					c.SSEvent("error", dto.ErrorResponse{Error: err.Error()})
				}
				return false
			}
			c.SSEvent(string(delta.Kind), dto.DeltaResponse{
				Kind:  string(delta.Kind),
				Order: toOrderResponse(delta.Order),
			})
			return true
		}
	})
}

// List handles GET /api/producer/orders. The status query parameter may be
// repeated or comma separated.
func (h *OrderHandler) List(c *gin.Context) {
	var statuses []model.OrderStatus
	for _, raw := range c.QueryArray("status") {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, model.OrderStatus(s))
			}
		}
	}

	orders, err := h.facade.Orders(c.Request.Context(), CurrentProducerID(c), statuses...)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(orders) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	response := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		response = append(response, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, response)
}

// Decide handles POST /api/orders/:id/decision.
func (h *OrderHandler) Decide(c *gin.Context) {
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed decision payload"})
		return
	}

	orderID := c.Param("id")
	status, err := h.facade.Decide(c.Request.Context(), CurrentProducerID(c), orderID, model.Decision(req.Decision))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{OrderID: orderID, Status: string(status)})
}

// Payment handles POST /api/orders/:id/payment.
func (h *OrderHandler) Payment(c *gin.Context) {
	orderID := c.Param("id")
	if err := h.facade.ConfirmPayment(c.Request.Context(), CurrentProducerID(c), orderID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{OrderID: orderID, Status: string(model.OrderStatusPaymentSuccessful)})
}

// Delivery handles POST /api/orders/:id/delivery. Repeating it is harmless
// and reports already_delivered.
func (h *OrderHandler) Delivery(c *gin.Context) {
	result, err := h.facade.ConfirmDelivery(c.Request.Context(), CurrentProducerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	changes := make([]dto.StockChangeResponse, 0, len(result.Changes))
	for _, ch := range result.Changes {
		changes = append(changes, dto.StockChangeResponse{
			ProductID:   ch.ProductID,
			ProductName: ch.ProductName,
			Before:      ch.Before,
			After:       ch.After,
		})
	}
	c.JSON(http.StatusOK, dto.DeliveryResponse{
		OrderID:          result.OrderID,
		AlreadyDelivered: result.AlreadyDelivered,
		Changes:          changes,
		Missing:          result.Missing,
	})
}
