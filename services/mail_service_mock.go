package services

import (
	"context"
	"fmt"
	"sync"
)

// MockMailService records sent emails instead of delivering them
type MockMailService struct {
	sent    []Email
	failFor map[string]bool
	FailAll bool
	mu      sync.Mutex
}

// NewMockMailService creates a new mock mail service
func NewMockMailService() *MockMailService {
	return &MockMailService{failFor: make(map[string]bool)}
}

// SetAsMockForTesting sets this mock as the global mail service instance
func (m *MockMailService) SetAsMockForTesting() {
	SetMailService(m)
}

// FailFor makes every send to address return an error
func (m *MockMailService) FailFor(address string) {
	m.mu.Lock()
	m.failFor[address] = true
	m.mu.Unlock()
}

func (m *MockMailService) Send(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll || m.failFor[email.To] {
		return fmt.Errorf("mock mail: delivery to %s failed", email.To)
	}
	m.sent = append(m.sent, email)
	return nil
}

// Sent returns a copy of every delivered email
func (m *MockMailService) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.sent...)
}

// LastTo returns the most recent email delivered to address
func (m *MockMailService) LastTo(address string) (Email, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == address {
			return m.sent[i], true
		}
	}
	return Email{}, false
}
