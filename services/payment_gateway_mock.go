package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MockPaymentGateway is a mock implementation of PaymentGateway for testing
type MockPaymentGateway struct {
	mu        sync.Mutex
	sessions  map[string]*CheckoutSession
	requests  []CheckoutSessionRequest
	nextID    int
	CreateErr error
	GetErr    error
	ExpireErr error
}

// NewMockPaymentGateway creates a new mock payment gateway
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{sessions: make(map[string]*CheckoutSession)}
}

// CreateCheckoutSession records the request and returns an unpaid session
func (m *MockPaymentGateway) CreateCheckoutSession(_ context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	m.nextID++
	id := fmt.Sprintf("cs_test_%d", m.nextID)
	session := &CheckoutSession{
		ID:                id,
		URL:               "https://checkout.example.com/pay/" + id,
		Status:            GatewaySessionOpen,
		PaymentStatus:     "unpaid",
		ClientReferenceID: fmt.Sprintf("%d", req.OrderID),
	}
	m.sessions[id] = session
	m.requests = append(m.requests, req)

	copied := *session
	return &copied, nil
}

// GetCheckoutSession returns a session created earlier
func (m *MockPaymentGateway) GetCheckoutSession(_ context.Context, sessionID string) (*CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, errors.New("no such checkout session")
	}
	copied := *session
	return &copied, nil
}

// ExpireCheckoutSession expires an open session. Paid sessions cannot be expired.
func (m *MockPaymentGateway) ExpireCheckoutSession(_ context.Context, sessionID string) (*CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ExpireErr != nil {
		return nil, m.ExpireErr
	}
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, errors.New("no such checkout session")
	}
	if session.Status != GatewaySessionOpen {
		return nil, fmt.Errorf("checkout session %s is %s", sessionID, session.Status)
	}
	session.Status = GatewaySessionExpired
	copied := *session
	return &copied, nil
}

// MarkPaid simulates the customer completing payment for a session.
// Expired sessions stay unpaid.
func (m *MockPaymentGateway) MarkPaid(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[sessionID]; ok && session.Status == GatewaySessionOpen {
		session.Status = "complete"
		session.PaymentStatus = GatewayPaymentPaid
	}
}

// Requests returns the checkout session requests received so far
func (m *MockPaymentGateway) Requests() []CheckoutSessionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CheckoutSessionRequest(nil), m.requests...)
}
