package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirimwa/dispatch-service/internal/core_domain"
	"github.com/kirimwa/dispatch-service/internal/dispatch_service/domain"
	"github.com/kirimwa/dispatch-service/internal/dispatch_service/provider"
	"github.com/kirimwa/dispatch-service/internal/platform/messagebroker"
)

// DeliveryProviderFactory builds a provider for one dispatch run from the
// caller-supplied credentials.
type DeliveryProviderFactory func(creds provider.Credentials) provider.DeliveryProvider

// RunRecorder hands completed runs to the history aggregator.
type RunRecorder interface {
	RecordRun(ctx context.Context, run core_domain.DispatchRun) error
}

// DispatchCommand is the caller-owned input for one dispatch run. Contacts is
// the canonical contact list; the orchestrator mutates eligible entries in
// place and returns the whole list so the caller can persist a consistent
// snapshot.
type DispatchCommand struct {
	Credentials provider.Credentials
	Template    string
	Contacts    []core_domain.Contact
	// TargetContactID selects a single contact for a forced resend,
	// regardless of its current status. Zero means bulk: every pending
	// contact.
	TargetContactID int64
}

// DispatchOutcome is the result of one dispatch run.
type DispatchOutcome struct {
	Results   []core_domain.DispatchResult
	Contacts  []core_domain.Contact
	Run       core_domain.DispatchRun
	Cancelled bool
}

// DispatchAppService is the bulk dispatch orchestrator. It processes eligible
// contacts strictly one at a time with pacing between sends; per-contact
// delivery failures are captured as results, never as call errors.
type DispatchAppService struct {
	providerFactory DeliveryProviderFactory
	recorder        RunRecorder
	natsClient      *messagebroker.NatsClient // optional; events are best effort
	logger          *slog.Logger
	pacer           *pacer
	now             func() time.Time
}

// NewDispatchAppService creates a DispatchAppService. natsClient may be nil,
// in which case no run-completed events are published.
func NewDispatchAppService(
	providerFactory DeliveryProviderFactory,
	recorder RunRecorder,
	natsClient *messagebroker.NatsClient,
	logger *slog.Logger,
) *DispatchAppService {
	return &DispatchAppService{
		providerFactory: providerFactory,
		recorder:        recorder,
		natsClient:      natsClient,
		logger:          logger.With("service", "dispatch_app"),
		pacer:           newPacer(nil, nil),
		now:             time.Now,
	}
}

// Dispatch runs one dispatch over the command's eligible set.
//
// Precondition violations (missing credentials, empty template, no eligible
// contacts, unknown target id) fail the call before any network activity.
// Once the loop starts, the call always returns an outcome: cancellation at a
// loop boundary stops further sends but keeps everything already processed.
func (s *DispatchAppService) Dispatch(ctx context.Context, cmd DispatchCommand) (*DispatchOutcome, error) {
	if !cmd.Credentials.Valid() {
		return nil, domain.ErrMissingCredentials
	}
	if strings.TrimSpace(cmd.Template) == "" {
		return nil, domain.ErrEmptyTemplate
	}
	if len(cmd.Contacts) == 0 {
		return nil, domain.ErrNoContacts
	}

	eligible, singleTarget, err := selectEligible(cmd)
	if err != nil {
		return nil, err
	}

	mode := "bulk"
	if singleTarget {
		mode = "single"
	}
	s.logger.InfoContext(ctx, "Starting dispatch run", "mode", mode, "eligible", len(eligible), "total_contacts", len(cmd.Contacts))

	prov := s.providerFactory(cmd.Credentials)
	results := make([]core_domain.DispatchResult, 0, len(eligible))
	cancelled := false

	for i, idx := range eligible {
		// Cancellation is only honored between contacts, never mid-call.
		if ctx.Err() != nil {
			cancelled = true
			s.logger.WarnContext(ctx, "Dispatch run cancelled", "processed", len(results), "remaining", len(eligible)-i)
			break
		}

		contact := &cmd.Contacts[idx]
		message := domain.RenderTemplate(cmd.Template, *contact)

		timer := prometheus.NewTimer(providerRequestDurationHist.WithLabelValues(prov.GetName()))
		// The in-flight call is shielded from run cancellation; the provider's
		// own timeout bounds it.
		resp := prov.Send(context.WithoutCancel(ctx), provider.SendRequestDetails{
			Credentials: cmd.Credentials,
			Recipient:   contact.Phone,
			Message:     message,
		})
		timer.ObserveDuration()

		now := s.now().UTC()
		if resp.IsSuccess {
			contact.MarkSent(now)
			messagesDispatchedTotal.WithLabelValues("success").Inc()
			s.logger.InfoContext(ctx, "Message sent", "contact_id", contact.ID, "phone", contact.Phone, "progress", i+1, "of", len(eligible))
			results = append(results, core_domain.DispatchResult{
				Contact:     *contact,
				Status:      core_domain.ResultStatusSuccess,
				Message:     message,
				APIResponse: resp.ProviderPayload,
			})
		} else {
			contact.MarkFailed(resp.ErrorMessage, now)
			messagesDispatchedTotal.WithLabelValues("failed").Inc()
			s.logger.WarnContext(ctx, "Message failed", "contact_id", contact.ID, "phone", contact.Phone, "error", resp.ErrorMessage)
			results = append(results, core_domain.DispatchResult{
				Contact:     *contact,
				Status:      core_domain.ResultStatusFailed,
				Message:     message,
				Error:       resp.ErrorMessage,
				APIResponse: resp.ProviderPayload,
			})
		}

		if i < len(eligible)-1 {
			if err := s.pacer.wait(ctx, singleTarget); err != nil {
				cancelled = true
				s.logger.WarnContext(ctx, "Dispatch run cancelled during pacing delay", "processed", len(results))
				break
			}
		}
	}

	run := core_domain.NewDispatchRun(uuid.New(), s.now().UTC(), cmd.Template, results)

	// Recording and event publication must survive request cancellation:
	// messages already went out.
	tailCtx := context.WithoutCancel(ctx)
	if s.recorder != nil && len(run.Results) > 0 {
		if err := s.recorder.RecordRun(tailCtx, run); err != nil {
			// The sends happened; failing the call now would misreport them.
			s.logger.ErrorContext(ctx, "Failed to record dispatch run in history", "error", err, "run_id", run.ID)
		}
	}
	s.publishRunCompleted(tailCtx, run, cancelled)

	outcome := "completed"
	if cancelled {
		outcome = "cancelled"
	}
	dispatchRunsTotal.WithLabelValues(mode, outcome).Inc()
	s.logger.InfoContext(ctx, "Dispatch run finished",
		"run_id", run.ID, "outcome", outcome,
		"total", run.TotalRecipients, "success", run.SuccessCount, "failed", run.FailedCount)

	return &DispatchOutcome{
		Results:   results,
		Contacts:  cmd.Contacts,
		Run:       run,
		Cancelled: cancelled,
	}, nil
}

// selectEligible resolves the eligible set as indices into cmd.Contacts,
// preserving list order.
func selectEligible(cmd DispatchCommand) (eligible []int, singleTarget bool, err error) {
	if cmd.TargetContactID != 0 {
		for i := range cmd.Contacts {
			if cmd.Contacts[i].ID == cmd.TargetContactID {
				// Included regardless of current status: manual resend of an
				// already sent or failed contact is intentional here.
				return []int{i}, true, nil
			}
		}
		return nil, false, domain.ErrContactNotFound
	}

	for i := range cmd.Contacts {
		if cmd.Contacts[i].Status == core_domain.ContactStatusPending {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return nil, false, domain.ErrNoPendingContacts
	}
	return eligible, false, nil
}

func (s *DispatchAppService) publishRunCompleted(ctx context.Context, run core_domain.DispatchRun, cancelled bool) {
	if s.natsClient == nil {
		return
	}
	event := domain.DispatchRunCompletedEvent{
		RunID:           run.ID,
		CompletedAt:     run.Timestamp,
		TotalRecipients: run.TotalRecipients,
		SuccessCount:    run.SuccessCount,
		FailedCount:     run.FailedCount,
		Cancelled:       cancelled,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to marshal run-completed event", "error", err, "run_id", run.ID)
		return
	}
	if err := s.natsClient.Publish(ctx, domain.NATSDispatchRunCompletedV1, payload); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish run-completed event", "error", err, "run_id", run.ID)
	}
}
