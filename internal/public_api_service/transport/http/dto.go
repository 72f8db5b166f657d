package http

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kirimwa/dispatch-service/internal/core_domain"
)

// --- Requests ---

type AddContactRequestDTO struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

type SendMessagesRequestDTO struct {
	APIKey   string `json:"api_key" validate:"required"`
	Sender   string `json:"sender" validate:"required"`
	Template string `json:"template" validate:"required"`
	// ContactID selects a single contact for a forced resend; zero or absent
	// means bulk over all pending contacts.
	ContactID int64 `json:"contact_id,omitempty"`
}

type TestDeliveryRequestDTO struct {
	APIKey  string `json:"api_key" validate:"required"`
	Sender  string `json:"sender" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// --- Responses ---

type ContactDTO struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	Status    string     `json:"status"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toContactDTO(c core_domain.Contact) ContactDTO {
	return ContactDTO{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Status:    string(c.Status),
		SentAt:    c.SentAt,
		Error:     c.Error,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toContactDTOs(contacts []core_domain.Contact) []ContactDTO {
	dtos := make([]ContactDTO, 0, len(contacts))
	for _, c := range contacts {
		dtos = append(dtos, toContactDTO(c))
	}
	return dtos
}

type DispatchResultDTO struct {
	ContactID   int64           `json:"contact_id"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Status      string          `json:"status"`
	Message     string          `json:"message"`
	Error       string          `json:"error,omitempty"`
	APIResponse json.RawMessage `json:"api_response,omitempty"`
}

type DispatchSummaryDTO struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

type SendMessagesResponseDTO struct {
	RunID     uuid.UUID           `json:"run_id"`
	Cancelled bool                `json:"cancelled"`
	Summary   DispatchSummaryDTO  `json:"summary"`
	Results   []DispatchResultDTO `json:"results"`
	Contacts  []ContactDTO        `json:"contacts"`
}

type UploadContactsResponseDTO struct {
	Imported int          `json:"imported"`
	Contacts []ContactDTO `json:"contacts"`
}

type ResetContactsResponseDTO struct {
	Reset int `json:"reset"`
}

type TestDeliveryResponseDTO struct {
	Success          bool            `json:"success"`
	Error            string          `json:"error,omitempty"`
	ProviderResponse json.RawMessage `json:"provider_response,omitempty"`
}

type DispatchRunDTO struct {
	ID              uuid.UUID `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Template        string    `json:"template"`
	TotalRecipients int       `json:"total_recipients"`
	SuccessCount    int       `json:"success_count"`
	FailedCount     int       `json:"failed_count"`
}

type ErrorResponseDTO struct {
	Error string `json:"error"`
}
