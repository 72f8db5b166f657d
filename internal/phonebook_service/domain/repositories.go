package domain

import (
	"context"

	"github.com/kirimwa/dispatch-service/internal/core_domain"
)

// ContactRepository defines persistence operations for contacts.
type ContactRepository interface {
	Create(ctx context.Context, contact core_domain.Contact) error
	// CreateBatch inserts all contacts atomically; either all rows land or none.
	CreateBatch(ctx context.Context, contacts []core_domain.Contact) error
	GetByID(ctx context.Context, id int64) (*core_domain.Contact, error)
	ListAll(ctx context.Context) ([]core_domain.Contact, error)
	Update(ctx context.Context, contact core_domain.Contact) error
	// UpdateBatch persists status fields for all given contacts atomically.
	UpdateBatch(ctx context.Context, contacts []core_domain.Contact) error
	Delete(ctx context.Context, id int64) error
}
