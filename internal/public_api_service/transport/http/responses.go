package http

import (
	"encoding/json"
	"errors"
	"net/http"

	dispatchDomain "github.com/kirimwa/dispatch-service/internal/dispatch_service/domain"
	phonebookDomain "github.com/kirimwa/dispatch-service/internal/phonebook_service/domain"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusForError(err), ErrorResponseDTO{Error: err.Error()})
}

// statusForError maps domain sentinel errors onto HTTP statuses; anything
// unrecognized is a 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, phonebookDomain.ErrNotFound),
		errors.Is(err, dispatchDomain.ErrContactNotFound):
		return http.StatusNotFound
	case errors.Is(err, phonebookDomain.ErrDuplicateEntry):
		return http.StatusConflict
	case errors.Is(err, phonebookDomain.ErrUnsupportedFormat),
		errors.Is(err, phonebookDomain.ErrNoValidContacts),
		errors.Is(err, dispatchDomain.ErrNoPendingContacts),
		errors.Is(err, dispatchDomain.ErrMissingCredentials),
		errors.Is(err, dispatchDomain.ErrEmptyTemplate),
		errors.Is(err, dispatchDomain.ErrNoContacts):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
