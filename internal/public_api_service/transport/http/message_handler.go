package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/kirimwa/dispatch-service/internal/core_domain"
	"github.com/kirimwa/dispatch-service/internal/dispatch_service/app"
	"github.com/kirimwa/dispatch-service/internal/dispatch_service/provider"
)

// Dispatcher runs dispatch commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd app.DispatchCommand) (*app.DispatchOutcome, error)
}

type MessageHandler struct {
	dispatcher      Dispatcher
	phonebookApp    PhonebookApp
	providerFactory app.DeliveryProviderFactory
	logger          *slog.Logger
	validate        *validator.Validate
}

func NewMessageHandler(
	dispatcher Dispatcher,
	phonebookApp PhonebookApp,
	providerFactory app.DeliveryProviderFactory,
	logger *slog.Logger,
	validate *validator.Validate,
) *MessageHandler {
	return &MessageHandler{
		dispatcher:      dispatcher,
		phonebookApp:    phonebookApp,
		providerFactory: providerFactory,
		logger:          logger.With("component", "message_handler"),
		validate:        validate,
	}
}

// SendMessages runs a dispatch over the stored contacts and persists the
// resulting status changes.
func (h *MessageHandler) SendMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var reqDTO SendMessagesRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponseDTO{Error: "invalid request body: " + err.Error()})
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponseDTO{Error: "validation failed: " + err.Error()})
		return
	}

	contacts, err := h.phonebookApp.ListContacts(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load contacts for dispatch", "error", err)
		respondError(w, err)
		return
	}

	outcome, err := h.dispatcher.Dispatch(ctx, app.DispatchCommand{
		Credentials:     provider.Credentials{APIKey: reqDTO.APIKey, SenderID: reqDTO.Sender},
		Template:        reqDTO.Template,
		Contacts:        contacts,
		TargetContactID: reqDTO.ContactID,
	})
	if err != nil {
		logger.WarnContext(ctx, "Dispatch rejected", "error", err)
		respondError(w, err)
		return
	}

	if err := h.phonebookApp.SaveDispatchResults(ctx, dispatchedContacts(outcome)); err != nil {
		// Statuses are already in the run history; report the run anyway.
		logger.ErrorContext(ctx, "Failed to persist contact statuses after dispatch", "error", err, "run_id", outcome.Run.ID)
	}

	respondJSON(w, http.StatusOK, toSendMessagesResponse(outcome))
}

// TestDelivery sends one ad-hoc message through the provider without touching
// the phonebook, so operators can verify credentials.
func (h *MessageHandler) TestDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var reqDTO TestDeliveryRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponseDTO{Error: "invalid request body: " + err.Error()})
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponseDTO{Error: "validation failed: " + err.Error()})
		return
	}

	creds := provider.Credentials{APIKey: reqDTO.APIKey, SenderID: reqDTO.Sender}
	prov := h.providerFactory(creds)
	resp := prov.Send(ctx, provider.SendRequestDetails{
		Credentials: creds,
		Recipient:   core_domain.NormalizePhone(reqDTO.Phone),
		Message:     reqDTO.Message,
	})

	logger.InfoContext(ctx, "Test delivery attempted", "provider", prov.GetName(), "success", resp.IsSuccess)
	respondJSON(w, http.StatusOK, TestDeliveryResponseDTO{
		Success:          resp.IsSuccess,
		Error:            resp.ErrorMessage,
		ProviderResponse: resp.ProviderPayload,
	})
}

// dispatchedContacts narrows the outcome to the contacts actually touched by
// the run, so untouched rows are not rewritten.
func dispatchedContacts(outcome *app.DispatchOutcome) []core_domain.Contact {
	touched := make([]core_domain.Contact, 0, len(outcome.Results))
	for _, result := range outcome.Results {
		touched = append(touched, result.Contact)
	}
	return touched
}

func toSendMessagesResponse(outcome *app.DispatchOutcome) SendMessagesResponseDTO {
	results := make([]DispatchResultDTO, 0, len(outcome.Results))
	for _, result := range outcome.Results {
		results = append(results, DispatchResultDTO{
			ContactID:   result.Contact.ID,
			Name:        result.Contact.Name,
			Phone:       result.Contact.Phone,
			Status:      string(result.Status),
			Message:     result.Message,
			Error:       result.Error,
			APIResponse: result.APIResponse,
		})
	}
	return SendMessagesResponseDTO{
		RunID:     outcome.Run.ID,
		Cancelled: outcome.Cancelled,
		Summary: DispatchSummaryDTO{
			Total:   outcome.Run.TotalRecipients,
			Success: outcome.Run.SuccessCount,
			Failed:  outcome.Run.FailedCount,
		},
		Results:  results,
		Contacts: toContactDTOs(outcome.Contacts),
	}
}
