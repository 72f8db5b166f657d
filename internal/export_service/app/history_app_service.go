package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirimwa/dispatch-service/internal/core_domain"
	exportDomain "github.com/kirimwa/dispatch-service/internal/export_service/domain"
)

// ReportCSVHeader is the first line of every exported send report.
const ReportCSVHeader = "Timestamp,Template,Contact Name,Phone,Status,Message,Error"

// HistoryService records completed dispatch runs and renders the send report.
type HistoryService struct {
	repo   exportDomain.HistoryRepository
	logger *slog.Logger
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(repo exportDomain.HistoryRepository, logger *slog.Logger) *HistoryService {
	return &HistoryService{
		repo:   repo,
		logger: logger.With("service", "history_app"),
	}
}

// RecordRun appends one completed run to the history.
func (s *HistoryService) RecordRun(ctx context.Context, run core_domain.DispatchRun) error {
	if err := s.repo.Append(ctx, run); err != nil {
		s.logger.ErrorContext(ctx, "Failed to append dispatch run", "error", err, "run_id", run.ID)
		return fmt.Errorf("appending dispatch run failed: %w", err)
	}
	runsRecordedCounter.Inc()
	s.logger.InfoContext(ctx, "Dispatch run recorded", "run_id", run.ID, "results", len(run.Results))
	return nil
}

// ListRuns returns the full history, oldest first.
func (s *HistoryService) ListRuns(ctx context.Context) ([]core_domain.DispatchRun, error) {
	return s.repo.ListAll(ctx)
}

// ExportReportCSV renders the whole history as a CSV report.
func (s *HistoryService) ExportReportCSV(ctx context.Context) ([]byte, error) {
	runs, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load history for report export", "error", err)
		return nil, fmt.Errorf("loading history for export failed: %w", err)
	}
	report := RenderReportCSV(runs)
	rows := 0
	for _, run := range runs {
		rows += len(run.Results)
	}
	exportedRowsCounter.WithLabelValues("send_report_csv").Add(float64(rows))
	s.logger.InfoContext(ctx, "Send report exported", "runs", len(runs), "rows", rows)
	return []byte(report), nil
}

// RenderReportCSV renders one row per (run, result) pair. Free-text fields
// are always quoted, embedded quotes doubled, and embedded newlines escaped
// to a literal \n so every record stays on a single physical line.
func RenderReportCSV(runs []core_domain.DispatchRun) string {
	var b strings.Builder
	b.WriteString(ReportCSVHeader)
	b.WriteString("\n")

	for _, run := range runs {
		timestamp := run.Timestamp.UTC().Format(time.RFC3339)
		for _, result := range run.Results {
			b.WriteString(timestamp)
			b.WriteString(",")
			b.WriteString(quoteReportField(run.Template))
			b.WriteString(",")
			b.WriteString(quoteReportField(result.Contact.Name))
			b.WriteString(",")
			b.WriteString(result.Contact.Phone)
			b.WriteString(",")
			b.WriteString(string(result.Status))
			b.WriteString(",")
			b.WriteString(quoteReportField(result.Message))
			b.WriteString(",")
			b.WriteString(quoteReportField(result.Error))
			b.WriteString("\n")
		}
	}
	return b.String()
}

var reportFieldEscaper = strings.NewReplacer(
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
	`"`, `""`,
)

func quoteReportField(s string) string {
	return `"` + reportFieldEscaper.Replace(s) + `"`
}
