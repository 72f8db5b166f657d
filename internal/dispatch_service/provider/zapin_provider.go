package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultAPIURL is the ZAPIN send-message endpoint.
	DefaultAPIURL = "https://zapin.my.id/send-message"

	// defaultRequestTimeout bounds one send round trip.
	defaultRequestTimeout = 10 * time.Second

	genericNetworkError = "network error"
)

// errorMessageFields is the ordered extraction chain for error messages in a
// ZAPIN response body: the first field that yields a non-empty string wins.
var errorMessageFields = []string{"msg", "message", "error"}

// ZapinProvider sends WhatsApp messages through the ZAPIN HTTP API.
type ZapinProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiURL     string
}

// NewZapinProvider creates a ZapinProvider. Pass a nil httpClient to use a
// default client with a 10 second timeout; pass an empty apiURL to use the
// public ZAPIN endpoint.
func NewZapinProvider(logger *slog.Logger, apiURL string, httpClient *http.Client) *ZapinProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &ZapinProvider{
		logger:     logger.With("provider", "zapin"),
		httpClient: httpClient,
		apiURL:     apiURL,
	}
}

// zapinSendRequest is the JSON body the ZAPIN API expects.
type zapinSendRequest struct {
	APIKey  string `json:"api_key"`
	Sender  string `json:"sender"`
	Number  string `json:"number"`
	Message string `json:"message"`
}

// Send issues one send-message call. Success is signaled by ZAPIN returning
// {"status": true, ...}; any other shape is a failure.
func (p *ZapinProvider) Send(ctx context.Context, details SendRequestDetails) SendResponseDetails {
	reqBody := zapinSendRequest{
		APIKey:  details.Credentials.APIKey,
		Sender:  details.Credentials.SenderID,
		Number:  details.Recipient,
		Message: details.Message,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		// Only reachable with invalid UTF-8 in the message; still never panic.
		p.logger.ErrorContext(ctx, "Failed to marshal ZAPIN request", "error", err, "recipient", details.Recipient)
		return SendResponseDetails{IsSuccess: false, ErrorMessage: "failed to encode request: " + err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(reqBytes))
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to create ZAPIN HTTP request", "error", err)
		return SendResponseDetails{IsSuccess: false, ErrorMessage: "failed to create request: " + err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.WarnContext(ctx, "ZAPIN request failed at transport level", "error", err, "recipient", details.Recipient)
		msg := err.Error()
		if msg == "" {
			msg = genericNetworkError
		}
		return SendResponseDetails{IsSuccess: false, ErrorMessage: msg}
	}
	defer httpResp.Body.Close()

	respBytes, readErr := io.ReadAll(httpResp.Body)
	if readErr != nil {
		p.logger.WarnContext(ctx, "Failed to read ZAPIN response body", "status_code", httpResp.StatusCode, "error", readErr)
		return SendResponseDetails{IsSuccess: false, ErrorMessage: genericNetworkError + ": " + readErr.Error()}
	}

	p.logger.DebugContext(ctx, "Received ZAPIN response", "status_code", httpResp.StatusCode, "body_len", len(respBytes))

	var parsed map[string]any
	parseErr := json.Unmarshal(respBytes, &parsed)

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 && parseErr == nil {
		if status, ok := parsed["status"].(bool); ok && status {
			p.logger.InfoContext(ctx, "Message accepted by ZAPIN", "recipient", details.Recipient)
			return SendResponseDetails{IsSuccess: true, ProviderPayload: json.RawMessage(respBytes)}
		}
	}

	errMsg := extractErrorMessage(parsed, respBytes)
	p.logger.WarnContext(ctx, "ZAPIN rejected message", "status_code", httpResp.StatusCode, "error", errMsg, "recipient", details.Recipient)
	return SendResponseDetails{
		IsSuccess:       false,
		ProviderPayload: json.RawMessage(respBytes),
		ErrorMessage:    errMsg,
	}
}

// GetName returns the provider name.
func (p *ZapinProvider) GetName() string {
	return "zapin"
}

// extractErrorMessage applies the ordered field chain to a parsed response
// body, falling back to the raw body and finally to a generic message.
func extractErrorMessage(parsed map[string]any, raw []byte) string {
	for _, field := range errorMessageFields {
		if s, ok := parsed[field].(string); ok && s != "" {
			return s
		}
	}
	if body := strings.TrimSpace(string(raw)); body != "" {
		return body
	}
	return genericNetworkError
}
