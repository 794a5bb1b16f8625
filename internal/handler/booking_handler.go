package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ticketrush/reservation-engine/internal/domain"
	"github.com/ticketrush/reservation-engine/internal/dto"
	"github.com/ticketrush/reservation-engine/internal/service"
	"github.com/ticketrush/reservation-engine/pkg/response"
	"github.com/ticketrush/reservation-engine/pkg/telemetry"
)

// BookingHandler handles reservation HTTP requests
type BookingHandler struct {
	reservationService service.ReservationService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(reservationService service.ReservationService) *BookingHandler {
	return &BookingHandler{
		reservationService: reservationService,
	}
}

// Book handles POST /api/v1/events/:id/book
func (h *BookingHandler) Book(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.book")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("id")
	if eventID == "" {
		span.SetStatus(codes.Error, "event id required")
		response.BadRequest(c, "event id required")
		return
	}

	var req dto.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("user_id", req.UserID),
		attribute.Int("quantity", req.Quantity),
	)

	result, err := h.reservationService.Book(ctx, req.UserID, eventID, req.Quantity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("order_id", result.OrderID))
	span.SetStatus(codes.Ok, "")
	response.Created(c, result)
}

// GetOrder handles GET /api/v1/orders/:id
func (h *BookingHandler) GetOrder(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get_order")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	orderID := c.Param("id")
	if orderID == "" {
		span.SetStatus(codes.Error, "order id required")
		response.BadRequest(c, "order id required")
		return
	}

	span.SetAttributes(attribute.String("order_id", orderID))

	result, err := h.reservationService.GetOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// handleError maps domain errors to HTTP responses
func (h *BookingHandler) handleError(c *gin.Context, err error) {
	switch {
	case domain.IsValidationError(err):
		response.BadRequest(c, err.Error())
	case domain.IsNotFoundError(err):
		response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrInsufficientInventory):
		response.Conflict(c, "INSUFFICIENT_INVENTORY", err.Error())
	case errors.Is(err, domain.ErrTicketContended):
		response.Locked(c, err.Error())
	case errors.Is(err, domain.ErrPaymentUnavailable):
		response.Error(c, http.StatusBadGateway, "PAYMENT_UNAVAILABLE", err.Error(), "")
	default:
		response.InternalError(c, err)
	}
}
