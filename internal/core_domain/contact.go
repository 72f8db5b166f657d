package core_domain

import (
	"strings"
	"time"
	"unicode"
)

// ContactStatus is the delivery status of a contact.
type ContactStatus string

const (
	ContactStatusPending ContactStatus = "pending"
	ContactStatusSent    ContactStatus = "sent"
	ContactStatusFailed  ContactStatus = "failed"
)

// Contact is a message recipient. Status transitions during a dispatch run are
// owned exclusively by the dispatch orchestrator; ResetStatus is the external
// reset used by the phonebook service.
//
// Invariant: Status != pending implies exactly one of SentAt (sent) or
// Error (failed) is set, never both.
type Contact struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Phone     string        `json:"phone"` // digits only
	Status    ContactStatus `json:"status"`
	SentAt    *time.Time    `json:"sent_at,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewContact creates a pending contact with a normalized phone number.
func NewContact(id int64, name, phone string, createdAt time.Time) Contact {
	return Contact{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Phone:     NormalizePhone(phone),
		Status:    ContactStatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// NormalizePhone strips everything but digits from a phone number.
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MarkSent records a successful delivery at the given time and clears any
// error from a previous attempt.
func (c *Contact) MarkSent(at time.Time) {
	c.Status = ContactStatusSent
	c.SentAt = &at
	c.Error = ""
	c.UpdatedAt = at
}

// MarkFailed records a failed delivery attempt. A previous successful SentAt
// is cleared so the sent/failed invariant holds after a force resend.
func (c *Contact) MarkFailed(errMsg string, at time.Time) {
	c.Status = ContactStatusFailed
	c.Error = errMsg
	c.SentAt = nil
	c.UpdatedAt = at
}

// ResetStatus returns the contact to pending, clearing delivery state.
func (c *Contact) ResetStatus(at time.Time) {
	c.Status = ContactStatusPending
	c.SentAt = nil
	c.Error = ""
	c.UpdatedAt = at
}
