package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kirimwa/dispatch-service/internal/core_domain"
)

// HistoryApp is the send-history surface the handler needs.
type HistoryApp interface {
	ListRuns(ctx context.Context) ([]core_domain.DispatchRun, error)
	ExportReportCSV(ctx context.Context) ([]byte, error)
}

type ReportHandler struct {
	historyApp HistoryApp
	logger     *slog.Logger
	now        func() time.Time
}

func NewReportHandler(historyApp HistoryApp, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		historyApp: historyApp,
		logger:     logger.With("component", "report_handler"),
		now:        time.Now,
	}
}

// ListRuns returns run summaries, oldest first, without per-recipient detail.
func (h *ReportHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.historyApp.ListRuns(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	dtos := make([]DispatchRunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, DispatchRunDTO{
			ID:              run.ID,
			Timestamp:       run.Timestamp,
			Template:        run.Template,
			TotalRecipients: run.TotalRecipients,
			SuccessCount:    run.SuccessCount,
			FailedCount:     run.FailedCount,
		})
	}
	respondJSON(w, http.StatusOK, dtos)
}

// DownloadReport streams the whole send history as a CSV attachment.
func (h *ReportHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	report, err := h.historyApp.ExportReportCSV(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to export send report", "error", err)
		respondError(w, err)
		return
	}

	filename := fmt.Sprintf("send-report-%s.csv", h.now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(report); err != nil {
		logger.ErrorContext(ctx, "Failed to write send report response", "error", err)
	}
}
