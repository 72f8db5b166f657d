package core_domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ResultStatus is the outcome of one delivery attempt within a run.
type ResultStatus string

const (
	ResultStatusSuccess ResultStatus = "success"
	ResultStatusFailed  ResultStatus = "failed"
)

// DispatchResult is the outcome record for one contact within one dispatch
// run. Contact is a snapshot taken after the send attempt mutated it.
type DispatchResult struct {
	Contact     Contact         `json:"contact"`
	Status      ResultStatus    `json:"status"`
	Message     string          `json:"message"` // rendered message text
	Error       string          `json:"error,omitempty"`
	APIResponse json.RawMessage `json:"api_response,omitempty"` // opaque provider payload
}

// DispatchRun is one completed invocation of the orchestrator. Immutable once
// created; the history store only ever appends runs.
type DispatchRun struct {
	ID              uuid.UUID        `json:"id"`
	Timestamp       time.Time        `json:"timestamp"`
	Template        string           `json:"template"`
	Results         []DispatchResult `json:"results"`
	TotalRecipients int              `json:"total_recipients"`
	SuccessCount    int              `json:"success_count"`
	FailedCount     int              `json:"failed_count"`
}

// NewDispatchRun assembles a run record from collected results, deriving the
// summary counts.
func NewDispatchRun(id uuid.UUID, at time.Time, template string, results []DispatchResult) DispatchRun {
	run := DispatchRun{
		ID:              id,
		Timestamp:       at,
		Template:        template,
		Results:         results,
		TotalRecipients: len(results),
	}
	for _, res := range results {
		if res.Status == ResultStatusSuccess {
			run.SuccessCount++
		} else {
			run.FailedCount++
		}
	}
	return run
}
