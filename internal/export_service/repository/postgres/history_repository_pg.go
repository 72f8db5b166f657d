package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirimwa/dispatch-service/internal/core_domain"
	"github.com/kirimwa/dispatch-service/internal/export_service/domain"
)

// PgxPoolIface is the subset of pgxpool.Pool the repository needs. Satisfied
// by *pgxpool.Pool and by pgxmock pools in tests.
type PgxPoolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgHistoryRepository stores dispatch runs append-only; rows are inserted
// once and never updated.
type PgHistoryRepository struct {
	db     PgxPoolIface
	logger *slog.Logger
}

func NewPgHistoryRepository(db PgxPoolIface, logger *slog.Logger) *PgHistoryRepository {
	return &PgHistoryRepository{db: db, logger: logger.With("repository", "pg_history")}
}

func (r *PgHistoryRepository) Append(ctx context.Context, run core_domain.DispatchRun) error {
	query := `
		INSERT INTO dispatch_runs (id, run_at, template, results, total_recipients, success_count, failed_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	resultsJSON, err := json.Marshal(run.Results)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error marshaling run results", "error", err, "run_id", run.ID)
		return err
	}

	_, err = r.db.Exec(ctx, query,
		run.ID, run.Timestamp, run.Template, resultsJSON,
		run.TotalRecipients, run.SuccessCount, run.FailedCount,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error inserting dispatch run", "error", err, "run_id", run.ID)
		return err
	}
	return nil
}

func (r *PgHistoryRepository) ListAll(ctx context.Context) ([]core_domain.DispatchRun, error) {
	query := `
		SELECT id, run_at, template, results, total_recipients, success_count, failed_count
		FROM dispatch_runs
		ORDER BY run_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing dispatch runs", "error", err)
		return nil, err
	}
	defer rows.Close()

	var runs []core_domain.DispatchRun
	for rows.Next() {
		var run core_domain.DispatchRun
		var resultsJSON []byte
		if err := rows.Scan(
			&run.ID, &run.Timestamp, &run.Template, &resultsJSON,
			&run.TotalRecipients, &run.SuccessCount, &run.FailedCount,
		); err != nil {
			r.logger.ErrorContext(ctx, "Error scanning dispatch run row", "error", err)
			return nil, err
		}
		if err := json.Unmarshal(resultsJSON, &run.Results); err != nil {
			r.logger.ErrorContext(ctx, "Error unmarshaling run results", "error", err, "run_id", run.ID)
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating dispatch run rows", "error", err)
		return nil, err
	}
	return runs, nil
}

// GetByID loads a single run.
func (r *PgHistoryRepository) GetByID(ctx context.Context, id string) (*core_domain.DispatchRun, error) {
	query := `
		SELECT id, run_at, template, results, total_recipients, success_count, failed_count
		FROM dispatch_runs
		WHERE id = $1
	`
	var run core_domain.DispatchRun
	var resultsJSON []byte
	err := r.db.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Timestamp, &run.Template, &resultsJSON,
		&run.TotalRecipients, &run.SuccessCount, &run.FailedCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting dispatch run by ID", "error", err, "run_id", id)
		return nil, err
	}
	if err := json.Unmarshal(resultsJSON, &run.Results); err != nil {
		return nil, err
	}
	return &run, nil
}
