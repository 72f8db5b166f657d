package app

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kirimwa/dispatch-service/internal/core_domain"
)

// --- Mocks ---

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Append(ctx context.Context, run core_domain.DispatchRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockHistoryRepository) ListAll(ctx context.Context) ([]core_domain.DispatchRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]core_domain.DispatchRun), args.Error(1)
}

func setupHistoryTest(t *testing.T) (*HistoryService, *MockHistoryRepository) {
	t.Helper()
	repo := new(MockHistoryRepository)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHistoryService(repo, logger), repo
}

func sampleRun(timestamp time.Time, template string, results []core_domain.DispatchResult) core_domain.DispatchRun {
	return core_domain.NewDispatchRun(uuid.New(), timestamp, template, results)
}

func sampleResult(name, phone string, status core_domain.ResultStatus, message, errMsg string) core_domain.DispatchResult {
	return core_domain.DispatchResult{
		Contact: core_domain.Contact{ID: 1, Name: name, Phone: phone},
		Status:  status,
		Message: message,
		Error:   errMsg,
	}
}

// --- Tests ---

func TestRecordRun(t *testing.T) {
	svc, repo := setupHistoryTest(t)
	run := sampleRun(time.Now().UTC(), "Hi {name}", []core_domain.DispatchResult{
		sampleResult("Ana", "6281111", core_domain.ResultStatusSuccess, "Hi Ana", ""),
	})
	repo.On("Append", mock.Anything, run).Return(nil).Once()

	require.NoError(t, svc.RecordRun(context.Background(), run))
	repo.AssertExpectations(t)
}

func TestRecordRun_RepoFailure(t *testing.T) {
	svc, repo := setupHistoryTest(t)
	repoErr := errors.New("db down")
	repo.On("Append", mock.Anything, mock.Anything).Return(repoErr).Once()

	err := svc.RecordRun(context.Background(), sampleRun(time.Now().UTC(), "t", nil))
	assert.ErrorIs(t, err, repoErr)
}

func TestRenderReportCSV_Empty(t *testing.T) {
	report := RenderReportCSV(nil)
	assert.Equal(t, ReportCSVHeader+"\n", report)
}

func TestRenderReportCSV_EscapesNewlinesAndQuotes(t *testing.T) {
	timestamp := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	run := sampleRun(timestamp, "Line one\nLine two", []core_domain.DispatchResult{
		sampleResult(`Ana "The Boss"`, "6281111", core_domain.ResultStatusFailed, "Line one\nLine two", "error with\r\nnewline"),
	})

	report := RenderReportCSV([]core_domain.DispatchRun{run})
	lines := strings.Split(strings.TrimRight(report, "\n"), "\n")
	// Header plus exactly one physical line per result, newlines escaped.
	require.Len(t, lines, 2)
	assert.Equal(t, ReportCSVHeader, lines[0])
	assert.Contains(t, lines[1], `"Line one\nLine two"`)
	assert.Contains(t, lines[1], `"Ana ""The Boss"""`)
	assert.Contains(t, lines[1], `"error with\nnewline"`)
	assert.Contains(t, lines[1], "2024-03-01T10:30:00Z")
}

func TestRenderReportCSV_RoundTrip(t *testing.T) {
	timestamp := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	runs := []core_domain.DispatchRun{
		sampleRun(timestamp, "Hi {name}", []core_domain.DispatchResult{
			sampleResult("Ana", "6281111", core_domain.ResultStatusSuccess, "Hi Ana", ""),
			sampleResult("Budi, Jr.", "6282222", core_domain.ResultStatusFailed, "Hi Budi, Jr.", "balance exhausted"),
		}),
		sampleRun(timestamp.Add(time.Hour), "Promo", []core_domain.DispatchResult{
			sampleResult("Citra", "6283333", core_domain.ResultStatusSuccess, "Promo", ""),
		}),
	}

	report := RenderReportCSV(runs)
	records, err := csv.NewReader(strings.NewReader(report)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4) // header + 3 rows

	assert.Equal(t, strings.Split(ReportCSVHeader, ","), records[0])
	// (name, phone, status) are recoverable from every row.
	assert.Equal(t, []string{"Ana", "6281111", "success"}, records[1][2:5])
	assert.Equal(t, []string{"Budi, Jr.", "6282222", "failed"}, records[2][2:5])
	assert.Equal(t, []string{"Citra", "6283333", "success"}, records[3][2:5])
	assert.Equal(t, "balance exhausted", records[2][6])
}

func TestExportReportCSV(t *testing.T) {
	svc, repo := setupHistoryTest(t)
	runs := []core_domain.DispatchRun{
		sampleRun(time.Now().UTC(), "Hi {name}", []core_domain.DispatchResult{
			sampleResult("Ana", "6281111", core_domain.ResultStatusSuccess, "Hi Ana", ""),
		}),
	}
	repo.On("ListAll", mock.Anything).Return(runs, nil).Once()

	data, err := svc.ExportReportCSV(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), ReportCSVHeader))
	assert.Contains(t, string(data), "6281111")
	repo.AssertExpectations(t)
}

func TestExportReportCSV_RepoFailure(t *testing.T) {
	svc, repo := setupHistoryTest(t)
	repo.On("ListAll", mock.Anything).Return(nil, errors.New("db down")).Once()

	_, err := svc.ExportReportCSV(context.Background())
	require.Error(t, err)
}
