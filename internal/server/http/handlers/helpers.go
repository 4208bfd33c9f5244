package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
	"github.com/mdnair2344/greenbasket/internal/domain/model"
	"github.com/mdnair2344/greenbasket/internal/server/http/dto"
	"github.com/mdnair2344/greenbasket/internal/server/http/middleware"
)

// CurrentProducerID extracts authenticated producer identifier from context.
func CurrentProducerID(c *gin.Context) string {
	return c.GetString(middleware.ProducerIDContextKey)
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrInvalidDecision),
		errors.Is(err, domainErrors.ErrInvalidID),
		errors.Is(err, domainErrors.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domainErrors.ErrMalformedRecord):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domainErrors.ErrConcurrencyFailure),
		errors.Is(err, domainErrors.ErrSubscriptionClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: http.StatusText(status)})
		return
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: err.Error()})
}

func toOrderResponse(order model.Order) dto.OrderResponse {
	lines := make([]dto.OrderLineResponse, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, dto.OrderLineResponse{
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}
	return dto.OrderResponse{
		ID:          order.ID,
		ProducerID:  order.ProducerID,
		ConsumerID:  order.ConsumerID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		OrderDate:   order.OrderDate.Format("2006-01-02"),
		Lines:       lines,
	}
}
