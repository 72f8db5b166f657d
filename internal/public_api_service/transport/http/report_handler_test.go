package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kirimwa/dispatch-service/internal/core_domain"
)

func TestReportHandler_ListRuns(t *testing.T) {
	c := setupHandlerTest(t)
	run := core_domain.NewDispatchRun(
		uuid.New(),
		time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		"Hi {name}",
		[]core_domain.DispatchResult{
			{Contact: core_domain.Contact{ID: 1, Name: "Ana", Phone: "6281111"}, Status: core_domain.ResultStatusSuccess},
		},
	)
	c.historyApp.On("ListRuns", mock.Anything).Return([]core_domain.DispatchRun{run}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp []DispatchRunDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, run.ID, resp[0].ID)
	assert.Equal(t, 1, resp[0].TotalRecipients)
	assert.Equal(t, 1, resp[0].SuccessCount)
}

func TestReportHandler_DownloadReport(t *testing.T) {
	c := setupHandlerTest(t)
	report := "Timestamp,Template,Contact Name,Phone,Status,Message,Error\n" +
		`2024-03-01T10:30:00Z,"Hi {name}","Ana",6281111,success,"Hi Ana",""` + "\n"
	c.historyApp.On("ExportReportCSV", mock.Anything).Return([]byte(report), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Disposition"), `attachment; filename="send-report-`))
	assert.Equal(t, report, rr.Body.String())
}

func TestReportHandler_DownloadReport_Failure(t *testing.T) {
	c := setupHandlerTest(t)
	c.historyApp.On("ExportReportCSV", mock.Anything).Return(nil, errors.New("db down")).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
