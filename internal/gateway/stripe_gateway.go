package gateway

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ticketrush/reservation-engine/internal/domain"
	"github.com/ticketrush/reservation-engine/pkg/telemetry"
)

// StripeGateway implements PaymentGateway using Stripe Checkout
type StripeGateway struct {
	config *StripeGatewayConfig
}

// StripeGatewayConfig holds configuration for Stripe gateway
type StripeGatewayConfig struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
}

// NewStripeGateway creates a new Stripe gateway
func NewStripeGateway(config *StripeGatewayConfig) (*StripeGateway, error) {
	if config == nil {
		return nil, fmt.Errorf("stripe config is required")
	}
	if config.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	// Set Stripe API key globally
	stripe.Key = config.SecretKey

	return &StripeGateway{
		config: config,
	}, nil
}

// CreateSession creates a Stripe Checkout session for the reservation.
// The tracking_id is attached to the payment intent so it comes back in
// webhook events.
func (g *StripeGateway) CreateSession(ctx context.Context, req *SessionRequest) (*SessionResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "gateway.stripe.create_session")
	defer span.End()

	span.SetAttributes(
		attribute.String("tracking_id", req.TrackingID),
		attribute.String("order_id", req.OrderID),
		attribute.Int("quantity", req.Quantity),
	)

	// Stripe expects the smallest currency unit
	unitAmount := int64(req.UnitPrice * 100)

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.config.SuccessURL),
		CancelURL:  stripe.String(g.config.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(unitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.EventName),
					},
				},
				Quantity: stripe.Int64(int64(req.Quantity)),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"tracking_id": req.TrackingID,
				"order_id":    req.OrderID,
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("tracking_id", req.TrackingID)
	params.AddMetadata("order_id", req.OrderID)

	sess, err := session.New(params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, err)
	}

	span.SetAttributes(attribute.String("session_id", sess.ID))
	span.SetStatus(codes.Ok, "")
	return &SessionResponse{
		SessionID: sess.ID,
		URL:       sess.URL,
	}, nil
}

// Name returns the gateway name
func (g *StripeGateway) Name() string {
	return "stripe"
}

// Ensure StripeGateway implements PaymentGateway
var _ PaymentGateway = (*StripeGateway)(nil)
