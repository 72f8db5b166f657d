package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/kirimwa/dispatch-service/internal/core_domain"
)

// PhonebookApp is the contact management surface the handler needs.
type PhonebookApp interface {
	ImportContacts(ctx context.Context, content []byte, filename, contentType string) ([]core_domain.Contact, error)
	AddContact(ctx context.Context, name, phone string) (*core_domain.Contact, error)
	ListContacts(ctx context.Context) ([]core_domain.Contact, error)
	ResetContact(ctx context.Context, id int64) (*core_domain.Contact, error)
	ResetAllContacts(ctx context.Context) (int, error)
	DeleteContact(ctx context.Context, id int64) error
	SaveDispatchResults(ctx context.Context, contacts []core_domain.Contact) error
}

type ContactHandler struct {
	phonebookApp  PhonebookApp
	logger        *slog.Logger
	validate      *validator.Validate
	maxUploadSize int64
}

func NewContactHandler(phonebookApp PhonebookApp, logger *slog.Logger, validate *validator.Validate, maxUploadSize int64) *ContactHandler {
	return &ContactHandler{
		phonebookApp:  phonebookApp,
		logger:        logger.With("component", "contact_handler"),
		validate:      validate,
		maxUploadSize: maxUploadSize,
	}
}

// Upload accepts a multipart form with a contact file under the "file" field.
func (h *ContactHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		logger.WarnContext(ctx, "Failed to parse contact upload form", "error", err)
		respondJSON(w, http.StatusRequestEntityTooLarge, ErrorResponseDTO{Error: "upload too large or malformed multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.WarnContext(ctx, "Contact upload missing file field", "error", err)
		respondJSON(w, http.StatusBadRequest, ErrorResponseDTO{Error: "missing file field"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read uploaded contact file", "error", err)
		respondJSON(w, http.StatusInternalServerError, ErrorResponseDTO{Error: "failed to read uploaded file"})
		return
	}

	contacts, err := h.phonebookApp.ImportContacts(ctx, content, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		respondError(w, err)
		return
	}

	logger.InfoContext(ctx, "Contacts uploaded", "filename", header.Filename, "imported", len(contacts))
	respondJSON(w, http.StatusCreated, UploadContactsResponseDTO{
		Imported: len(contacts),
		Contacts: toContactDTOs(contacts),
	})
}

func (h *ContactHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var reqDTO AddContactRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponseDTO{Error: "invalid request body: " + err.Error()})
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponseDTO{Error: "validation failed: " + err.Error()})
		return
	}

	contact, err := h.phonebookApp.AddContact(ctx, reqDTO.Name, reqDTO.Phone)
	if err != nil {
		logger.WarnContext(ctx, "Failed to add contact", "error", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toContactDTO(*contact))
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.phonebookApp.ListContacts(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toContactDTOs(contacts))
}

func (h *ContactHandler) ResetOne(w http.ResponseWriter, r *http.Request) {
	id, err := contactIDParam(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponseDTO{Error: "invalid contact id"})
		return
	}
	contact, err := h.phonebookApp.ResetContact(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toContactDTO(*contact))
}

func (h *ContactHandler) ResetAll(w http.ResponseWriter, r *http.Request) {
	reset, err := h.phonebookApp.ResetAllContacts(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ResetContactsResponseDTO{Reset: reset})
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := contactIDParam(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponseDTO{Error: "invalid contact id"})
		return
	}
	if err := h.phonebookApp.DeleteContact(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func contactIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "contactID"), 10, 64)
}
