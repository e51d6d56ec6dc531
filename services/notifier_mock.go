package services

import (
	"errors"
	"sync"
)

// SentEmail is an email captured by MockMailer
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// MockMailer is a mock implementation of Mailer for testing
type MockMailer struct {
	mu   sync.Mutex
	sent []SentEmail
	Fail bool
}

// NewMockMailer creates a new mock mailer
func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

// Send records the email, or fails when Fail is set
func (m *MockMailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return errors.New("mock mailer failure")
	}
	m.sent = append(m.sent, SentEmail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

// Sent returns the emails sent so far
func (m *MockMailer) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.sent...)
}
