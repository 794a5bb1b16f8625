package gateway

import "context"

// SessionRequest describes the payment session to create for a
// reservation
type SessionRequest struct {
	// TrackingID is the server-minted payment reference carried back in
	// webhook metadata
	TrackingID string
	OrderID    string
	EventName  string
	Quantity   int
	UnitPrice  float64
	Currency   string
}

// SessionResponse is the created provider session
type SessionResponse struct {
	SessionID string
	URL       string
}

// PaymentGateway creates hosted payment sessions with an external
// provider
type PaymentGateway interface {
	// CreateSession creates a hosted checkout session. The TrackingID
	// must round-trip through the provider into webhook metadata.
	CreateSession(ctx context.Context, req *SessionRequest) (*SessionResponse, error)
	// Name returns the gateway name
	Name() string
}
