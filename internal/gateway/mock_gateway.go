package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// alphanumericChars for generating Stripe-compatible IDs
const alphanumericChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomAlphanumeric generates a random alphanumeric string of given length
func randomAlphanumeric(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphanumericChars[rand.Intn(len(alphanumericChars))]
	}
	return string(b)
}

// MockGateway implements PaymentGateway for development and load
// testing without a Stripe account
type MockGateway struct {
	config   *MockGatewayConfig
	sessions sync.Map // map[sessionID]*SessionRequest
}

// MockGatewayConfig holds configuration for the mock gateway
type MockGatewayConfig struct {
	// SuccessRate is the probability of session creation succeeding (0.0 to 1.0)
	SuccessRate float64
	// DelayMs is the simulated provider latency in milliseconds
	DelayMs int
	// BaseURL is the fake checkout URL prefix
	BaseURL string
}

// DefaultMockGatewayConfig returns default configuration
func DefaultMockGatewayConfig() *MockGatewayConfig {
	return &MockGatewayConfig{
		SuccessRate: 1.0,
		DelayMs:     0,
		BaseURL:     "https://checkout.mock.local/pay",
	}
}

// NewMockGateway creates a new mock gateway
func NewMockGateway(config *MockGatewayConfig) *MockGateway {
	if config == nil {
		config = DefaultMockGatewayConfig()
	}

	if config.SuccessRate < 0 {
		config.SuccessRate = 0
	}
	if config.SuccessRate > 1 {
		config.SuccessRate = 1
	}

	return &MockGateway{
		config: config,
	}
}

// CreateSession creates a fake checkout session
func (g *MockGateway) CreateSession(ctx context.Context, req *SessionRequest) (*SessionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("session request is required")
	}

	if g.config.DelayMs > 0 {
		select {
		case <-time.After(time.Duration(g.config.DelayMs) * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if rand.Float64() > g.config.SuccessRate {
		return nil, fmt.Errorf("mock gateway: simulated provider outage")
	}

	sessionID := "cs_test_" + randomAlphanumeric(24)
	g.sessions.Store(sessionID, req)

	return &SessionResponse{
		SessionID: sessionID,
		URL:       fmt.Sprintf("%s/%s", g.config.BaseURL, sessionID),
	}, nil
}

// Name returns the gateway name
func (g *MockGateway) Name() string {
	return "mock"
}

// Ensure MockGateway implements PaymentGateway
var _ PaymentGateway = (*MockGateway)(nil)
