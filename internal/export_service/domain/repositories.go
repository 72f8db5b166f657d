package domain

import (
	"context"
	"errors"

	"github.com/kirimwa/dispatch-service/internal/core_domain"
)

// ErrNotFound indicates the requested run does not exist.
var ErrNotFound = errors.New("requested entity not found")

// HistoryRepository persists completed dispatch runs. Runs are append-only:
// once recorded they are never mutated.
type HistoryRepository interface {
	Append(ctx context.Context, run core_domain.DispatchRun) error
	ListAll(ctx context.Context) ([]core_domain.DispatchRun, error)
}
