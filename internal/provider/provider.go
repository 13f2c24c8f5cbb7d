// Package provider abstracts the payment provider that charges users and
// tokenizes payment methods.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrDeclined is returned when the provider refuses a charge. It is a
	// business outcome, not a provider failure.
	ErrDeclined = errors.New("payment declined")

	// ErrUnavailable is returned when the provider cannot be reached or the
	// circuit breaker rejects the call.
	ErrUnavailable = errors.New("payment provider unavailable")
)

// ChargeRequest describes one charge. Amount is in minor currency units.
type ChargeRequest struct {
	Amount        int64
	Currency      string
	PaymentMethod string
	Reference     string
}

// ChargeResult is the provider's record of a successful charge.
type ChargeResult struct {
	ProviderPaymentID string
}

// Provider charges payments and tokenizes payment methods.
type Provider interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Tokenize(ctx context.Context, methodType string) (string, error)
}

// MockProvider approves every charge up to Limit and hands out placeholder
// tokens. It never talks to a network.
type MockProvider struct {
	// Limit is the largest amount approved. Zero means no limit.
	Limit int64

	mu      sync.Mutex
	charges []ChargeRequest
}

// NewMockProvider creates a provider that approves charges up to limit.
func NewMockProvider(limit int64) *MockProvider {
	return &MockProvider{Limit: limit}
}

// Charge implements Provider.
func (m *MockProvider) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if req.Amount <= 0 || (m.Limit > 0 && req.Amount > m.Limit) {
		return nil, fmt.Errorf("%w: amount %d exceeds limit", ErrDeclined, req.Amount)
	}

	m.mu.Lock()
	m.charges = append(m.charges, req)
	m.mu.Unlock()

	return &ChargeResult{ProviderPaymentID: "mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")}, nil
}

// Tokenize implements Provider with a test_<uuid> placeholder.
func (m *MockProvider) Tokenize(_ context.Context, _ string) (string, error) {
	return "test_" + uuid.NewString(), nil
}

// Charges returns the approved charge requests.
func (m *MockProvider) Charges() []ChargeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChargeRequest(nil), m.charges...)
}
