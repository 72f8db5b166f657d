package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// NATSDispatchRunCompletedV1 carries DispatchRunCompletedEvent payloads.
	NATSDispatchRunCompletedV1 = "dispatch.run.completed.v1"
)

// DispatchRunCompletedEvent is published (best effort) after every dispatch
// run so downstream consumers can react without polling the history store.
type DispatchRunCompletedEvent struct {
	RunID           uuid.UUID `json:"run_id"`
	CompletedAt     time.Time `json:"completed_at"`
	TotalRecipients int       `json:"total_recipients"`
	SuccessCount    int       `json:"success_count"`
	FailedCount     int       `json:"failed_count"`
	Cancelled       bool      `json:"cancelled,omitempty"`
}
