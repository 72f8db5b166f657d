package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirimwa/dispatch-service/internal/core_domain"
	"github.com/kirimwa/dispatch-service/internal/phonebook_service/domain"
)

// PgxPoolIface is the subset of pgxpool.Pool the repository needs. Satisfied
// by *pgxpool.Pool and by pgxmock pools in tests.
type PgxPoolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgContactRepository struct {
	db     PgxPoolIface
	logger *slog.Logger
}

func NewPgContactRepository(db PgxPoolIface, logger *slog.Logger) *PgContactRepository {
	return &PgContactRepository{db: db, logger: logger.With("repository", "pg_contact")}
}

const insertContactQuery = `
	INSERT INTO contacts (id, name, phone, status, sent_at, error, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func (r *PgContactRepository) Create(ctx context.Context, ct core_domain.Contact) error {
	_, err := r.db.Exec(ctx, insertContactQuery,
		ct.ID, ct.Name, ct.Phone, ct.Status, ct.SentAt, ct.Error, ct.CreatedAt, ct.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.WarnContext(ctx, "Duplicate contact", "phone", ct.Phone, "contact_id", ct.ID)
			return domain.ErrDuplicateEntry
		}
		r.logger.ErrorContext(ctx, "Error creating contact", "error", err, "contact_id", ct.ID)
		return err
	}
	return nil
}

func (r *PgContactRepository) CreateBatch(ctx context.Context, contacts []core_domain.Contact) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error beginning contact batch insert", "error", err)
		return err
	}
	defer tx.Rollback(ctx)

	for _, ct := range contacts {
		if _, err := tx.Exec(ctx, insertContactQuery,
			ct.ID, ct.Name, ct.Phone, ct.Status, ct.SentAt, ct.Error, ct.CreatedAt, ct.UpdatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateEntry
			}
			r.logger.ErrorContext(ctx, "Error inserting contact in batch", "error", err, "contact_id", ct.ID)
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Error committing contact batch insert", "error", err)
		return err
	}
	r.logger.InfoContext(ctx, "Contact batch inserted", "count", len(contacts))
	return nil
}

func (r *PgContactRepository) GetByID(ctx context.Context, id int64) (*core_domain.Contact, error) {
	query := `
		SELECT id, name, phone, status, sent_at, error, created_at, updated_at
		FROM contacts
		WHERE id = $1
	`
	ct := &core_domain.Contact{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&ct.ID, &ct.Name, &ct.Phone, &ct.Status, &ct.SentAt, &ct.Error, &ct.CreatedAt, &ct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting contact by ID", "error", err, "contact_id", id)
		return nil, err
	}
	return ct, nil
}

func (r *PgContactRepository) ListAll(ctx context.Context) ([]core_domain.Contact, error) {
	query := `
		SELECT id, name, phone, status, sent_at, error, created_at, updated_at
		FROM contacts
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing contacts", "error", err)
		return nil, err
	}
	defer rows.Close()

	var contacts []core_domain.Contact
	for rows.Next() {
		var ct core_domain.Contact
		if err := rows.Scan(
			&ct.ID, &ct.Name, &ct.Phone, &ct.Status, &ct.SentAt, &ct.Error, &ct.CreatedAt, &ct.UpdatedAt,
		); err != nil {
			r.logger.ErrorContext(ctx, "Error scanning contact row", "error", err)
			return nil, err
		}
		contacts = append(contacts, ct)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating contact rows", "error", err)
		return nil, err
	}
	return contacts, nil
}

const updateContactQuery = `
	UPDATE contacts
	SET name = $1, phone = $2, status = $3, sent_at = $4, error = $5, updated_at = $6
	WHERE id = $7
`

func (r *PgContactRepository) Update(ctx context.Context, ct core_domain.Contact) error {
	tag, err := r.db.Exec(ctx, updateContactQuery,
		ct.Name, ct.Phone, ct.Status, ct.SentAt, ct.Error, ct.UpdatedAt, ct.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEntry
		}
		r.logger.ErrorContext(ctx, "Error updating contact", "error", err, "contact_id", ct.ID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgContactRepository) UpdateBatch(ctx context.Context, contacts []core_domain.Contact) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error beginning contact batch update", "error", err)
		return err
	}
	defer tx.Rollback(ctx)

	for _, ct := range contacts {
		tag, err := tx.Exec(ctx, updateContactQuery,
			ct.Name, ct.Phone, ct.Status, ct.SentAt, ct.Error, ct.UpdatedAt, ct.ID,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Error updating contact in batch", "error", err, "contact_id", ct.ID)
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
	}
	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Error committing contact batch update", "error", err)
		return err
	}
	return nil
}

func (r *PgContactRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error deleting contact", "error", err, "contact_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
