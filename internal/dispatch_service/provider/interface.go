package provider

import (
	"context"
	"encoding/json"
)

// Credentials identify the caller against the delivery API. They are supplied
// per dispatch request, never read from service configuration.
type Credentials struct {
	APIKey   string
	SenderID string
}

// Valid reports whether both credential parts are present.
func (c Credentials) Valid() bool {
	return c.APIKey != "" && c.SenderID != ""
}

// SendRequestDetails holds the data for one outbound message.
type SendRequestDetails struct {
	Credentials Credentials
	Recipient   string // digits-only phone number
	Message     string // fully rendered message text
}

// SendResponseDetails is the normalized outcome of a send attempt. All
// failure modes (API rejection, malformed body, transport error, timeout)
// surface here as IsSuccess=false with a populated ErrorMessage; providers
// never propagate errors past this boundary.
type SendResponseDetails struct {
	IsSuccess       bool
	ProviderPayload json.RawMessage // raw response body, when one was received
	ErrorMessage    string
}

// DeliveryProvider is the adapter interface for a message delivery API.
type DeliveryProvider interface {
	Send(ctx context.Context, details SendRequestDetails) SendResponseDetails
	GetName() string
}
