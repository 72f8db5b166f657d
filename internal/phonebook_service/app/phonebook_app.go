package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kirimwa/dispatch-service/internal/core_domain"
	"github.com/kirimwa/dispatch-service/internal/phonebook_service/domain"
)

// Application provides contact management operations over the phonebook.
type Application struct {
	contactRepo domain.ContactRepository
	importer    *Importer
	logger      *slog.Logger
	now         func() time.Time
}

// NewApplication creates a new Application instance.
func NewApplication(contactRepo domain.ContactRepository, importer *Importer, logger *slog.Logger) *Application {
	return &Application{
		contactRepo: contactRepo,
		importer:    importer,
		logger:      logger.With("service", "phonebook_app"),
		now:         time.Now,
	}
}

// ImportContacts parses an uploaded file and persists the parsed contacts.
func (a *Application) ImportContacts(ctx context.Context, content []byte, filename, contentType string) ([]core_domain.Contact, error) {
	format := DetectFormat(filename, contentType)
	contacts, err := a.importer.Import(content, format)
	if err != nil {
		a.logger.WarnContext(ctx, "Contact import failed", "error", err, "filename", filename, "format", format)
		return nil, err
	}
	if err := a.contactRepo.CreateBatch(ctx, contacts); err != nil {
		a.logger.ErrorContext(ctx, "Failed to persist imported contacts", "error", err, "count", len(contacts))
		return nil, err
	}
	contactsImportedTotal.WithLabelValues(string(format)).Add(float64(len(contacts)))
	a.logger.InfoContext(ctx, "Contacts imported", "count", len(contacts), "filename", filename)
	return contacts, nil
}

// AddContact creates a single contact in pending state.
func (a *Application) AddContact(ctx context.Context, name, phone string) (*core_domain.Contact, error) {
	now := a.now().UTC()
	contact := core_domain.NewContact(now.UnixMilli(), name, phone, now)
	if strings.TrimSpace(contact.Name) == "" || contact.Phone == "" {
		return nil, domain.ErrNoValidContacts
	}
	if err := a.contactRepo.Create(ctx, contact); err != nil {
		a.logger.ErrorContext(ctx, "Failed to create contact", "error", err, "phone", contact.Phone)
		return nil, err
	}
	a.logger.InfoContext(ctx, "Contact created", "contact_id", contact.ID)
	return &contact, nil
}

// ListContacts returns every contact in insertion order.
func (a *Application) ListContacts(ctx context.Context) ([]core_domain.Contact, error) {
	return a.contactRepo.ListAll(ctx)
}

// ResetContact puts one contact back to pending so the next bulk run picks it up.
func (a *Application) ResetContact(ctx context.Context, id int64) (*core_domain.Contact, error) {
	contact, err := a.contactRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	contact.ResetStatus(a.now().UTC())
	if err := a.contactRepo.Update(ctx, *contact); err != nil {
		return nil, err
	}
	contactsResetTotal.Inc()
	return contact, nil
}

// ResetAllContacts puts every contact back to pending and reports how many
// actually changed state.
func (a *Application) ResetAllContacts(ctx context.Context) (int, error) {
	contacts, err := a.contactRepo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	now := a.now().UTC()
	changed := make([]core_domain.Contact, 0, len(contacts))
	for i := range contacts {
		if contacts[i].Status == core_domain.ContactStatusPending {
			continue
		}
		contacts[i].ResetStatus(now)
		changed = append(changed, contacts[i])
	}
	if len(changed) == 0 {
		return 0, nil
	}
	if err := a.contactRepo.UpdateBatch(ctx, changed); err != nil {
		return 0, err
	}
	contactsResetTotal.Add(float64(len(changed)))
	a.logger.InfoContext(ctx, "All contacts reset to pending", "changed", len(changed))
	return len(changed), nil
}

// DeleteContact removes a contact permanently.
func (a *Application) DeleteContact(ctx context.Context, id int64) error {
	if err := a.contactRepo.Delete(ctx, id); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "Contact deleted", "contact_id", id)
	return nil
}

// SaveDispatchResults persists the contact statuses mutated by a dispatch run.
func (a *Application) SaveDispatchResults(ctx context.Context, contacts []core_domain.Contact) error {
	if len(contacts) == 0 {
		return nil
	}
	if err := a.contactRepo.UpdateBatch(ctx, contacts); err != nil {
		a.logger.ErrorContext(ctx, "Failed to persist dispatched contact statuses", "error", err, "count", len(contacts))
		return err
	}
	return nil
}
