package provider

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// MockProvider is a test implementation of DeliveryProvider. It records every
// request it receives and can simulate failures and latency.
type MockProvider struct {
	logger         *slog.Logger
	FailSend       bool   // simulate delivery failure for every call
	FailMessage    string // error message used when FailSend is set
	SimulatedDelay time.Duration

	mu    sync.Mutex
	calls []SendRequestDetails
}

// NewMockProvider creates a MockProvider.
func NewMockProvider(logger *slog.Logger, failSend bool, delay time.Duration) *MockProvider {
	return &MockProvider{
		logger:         logger.With("provider", "mock"),
		FailSend:       failSend,
		FailMessage:    "mock provider simulated send failure",
		SimulatedDelay: delay,
	}
}

// Send simulates one delivery.
func (p *MockProvider) Send(ctx context.Context, details SendRequestDetails) SendResponseDetails {
	p.mu.Lock()
	p.calls = append(p.calls, details)
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "MockProvider: Send called",
		"recipient", details.Recipient, "message_length", len(details.Message))

	if p.SimulatedDelay > 0 {
		time.Sleep(p.SimulatedDelay)
	}

	if p.FailSend {
		return SendResponseDetails{IsSuccess: false, ErrorMessage: p.FailMessage}
	}
	return SendResponseDetails{
		IsSuccess:       true,
		ProviderPayload: json.RawMessage(`{"status":true,"msg":"Message sent successfully!"}`),
	}
}

// GetName returns the provider name.
func (p *MockProvider) GetName() string {
	return "mock"
}

// Calls returns a copy of the recorded requests.
func (p *MockProvider) Calls() []SendRequestDetails {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SendRequestDetails, len(p.calls))
	copy(out, p.calls)
	return out
}
