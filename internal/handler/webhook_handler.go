package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/ticketrush/reservation-engine/internal/domain"
	"github.com/ticketrush/reservation-engine/internal/service"
	"github.com/ticketrush/reservation-engine/pkg/logger"
	"github.com/ticketrush/reservation-engine/pkg/telemetry"
)

// WebhookHandler handles Stripe webhook events
type WebhookHandler struct {
	settlementService service.SettlementService
	webhookSecret     string
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(settlementService service.SettlementService, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		settlementService: settlementService,
		webhookSecret:     webhookSecret,
	}
}

// HandleStripeWebhook handles POST /api/v1/webhooks/stripe. The
// signature is verified before anything else; an event that fails
// verification or parsing changes no state.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.webhook.stripe")
	defer span.End()

	log := logger.Get()

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		span.SetStatus(codes.Error, "unreadable body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if sigHeader == "" {
		span.SetStatus(codes.Error, "missing signature")
		log.Warn("Missing Stripe-Signature header")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Stripe-Signature header"})
		return
	}

	event, err := webhook.ConstructEvent(payload, sigHeader, h.webhookSecret)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid signature")
		log.Warn("Webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	outcome := outcomeForEventType(event.Type)
	span.SetAttributes(
		attribute.String("event_type", string(event.Type)),
		attribute.String("outcome", outcome.String()),
	)

	if !outcome.Settles() {
		log.Info("Ignoring webhook event type", zap.String("event_type", string(event.Type)))
		span.SetStatus(codes.Ok, "")
		c.JSON(http.StatusOK, gin.H{"received": true, "message": "Event type not handled"})
		return
	}

	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed payload")
		log.Error("Failed to parse webhook event data",
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event data"})
		return
	}

	trackingID := paymentIntent.Metadata["tracking_id"]
	if trackingID == "" {
		span.SetStatus(codes.Error, "missing tracking_id")
		log.Warn("Webhook event carries no tracking_id",
			zap.String("event_type", string(event.Type)),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing tracking_id metadata"})
		return
	}

	span.SetAttributes(attribute.String("tracking_id", trackingID))

	if err := h.settlementService.Settle(ctx, outcome, trackingID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, domain.ErrOrderNotFound) {
			log.Warn("Webhook references unknown order",
				zap.String("tracking_id", trackingID),
			)
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		log.Error("Failed to settle order",
			zap.String("tracking_id", trackingID),
			zap.Error(err),
		)
		// Non-2xx makes the provider redeliver; settlement is idempotent
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Settlement failed"})
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// outcomeForEventType maps Stripe event types to the closed outcome set
func outcomeForEventType(eventType stripe.EventType) domain.PaymentOutcome {
	switch eventType {
	case "payment_intent.succeeded":
		return domain.PaymentOutcomeSucceeded
	case "payment_intent.payment_failed":
		return domain.PaymentOutcomeFailed
	case "payment_intent.canceled", "checkout.session.expired":
		return domain.PaymentOutcomeCancelled
	default:
		return domain.PaymentOutcomeOther
	}
}
