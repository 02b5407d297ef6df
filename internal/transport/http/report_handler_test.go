package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apierrors "acadreport/internal/errors"
	"acadreport/internal/middleware"
	rnd "acadreport/internal/render"
)

// MockReportService is a mock implementation of ReportServiceInterface
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Report(ctx context.Context, sessionID, studentID string, target rnd.Target) (rnd.Artifact, error) {
	args := m.Called(sessionID, studentID, target)
	return args.Get(0).(rnd.Artifact), args.Error(1)
}

func (m *MockReportService) Archive(ctx context.Context, sessionID string, target rnd.Target) ([]byte, error) {
	args := m.Called(sessionID, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func newTestReportHandler(service ReportServiceInterface) *ReportHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := apierrors.NewErrorHandler(logger, false)
	validator := middleware.NewValidationMiddleware(logger, errorHandler)
	return NewReportHandler(service, validator, logger, errorHandler)
}

func TestReportHandler_Download(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		target       rnd.Target
		artifact     rnd.Artifact
		wantMIME     string
		wantFilename string
	}{
		{
			name:         "pdf download",
			url:          "/S1/pdf",
			target:       rnd.TargetPDF,
			artifact:     rnd.Artifact{Bytes: []byte("%PDF-1.4"), Filename: "S1_Alice_Report.pdf", MIME: rnd.MIMEPDF},
			wantMIME:     rnd.MIMEPDF,
			wantFilename: "S1_Alice_Report.pdf",
		},
		{
			name:         "docx download",
			url:          "/S1/docx",
			target:       rnd.TargetDOCX,
			artifact:     rnd.Artifact{Bytes: []byte("PK"), Filename: "S1_Alice_Report.docx", MIME: rnd.MIMEDOCX},
			wantMIME:     rnd.MIMEDOCX,
			wantFilename: "S1_Alice_Report.docx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockReportService)
			mockService.On("Report", "", "S1", tt.target).Return(tt.artifact, nil)
			handler := newTestReportHandler(mockService)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()
			handler.Routes().ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantMIME, w.Header().Get("Content-Type"))
			assert.Contains(t, w.Header().Get("Content-Disposition"), tt.wantFilename)
			assert.Equal(t, tt.artifact.Bytes, w.Body.Bytes())
			mockService.AssertExpectations(t)
		})
	}
}

func TestReportHandler_Download_SessionQuery(t *testing.T) {
	mockService := new(MockReportService)
	mockService.On("Report", "abc", "S2", rnd.TargetPDF).
		Return(rnd.Artifact{Bytes: []byte("%PDF"), Filename: "S2_Bob_Report.pdf", MIME: rnd.MIMEPDF}, nil)
	handler := newTestReportHandler(mockService)

	req := httptest.NewRequest(http.MethodGet, "/S2/pdf?session=abc", nil)
	w := httptest.NewRecorder()
	handler.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestReportHandler_Download_StudentNotFound(t *testing.T) {
	mockService := new(MockReportService)
	mockService.On("Report", "", "S9", rnd.TargetPDF).
		Return(rnd.Artifact{}, apierrors.ErrStudentNotFound)
	handler := newTestReportHandler(mockService)

	req := httptest.NewRequest(http.MethodGet, "/S9/pdf", nil)
	w := httptest.NewRecorder()
	handler.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "/errors/analysis/student-not-found")
}

func TestReportHandler_Download_RenderFailure(t *testing.T) {
	mockService := new(MockReportService)
	mockService.On("Report", "", "S1", rnd.TargetPDF).
		Return(rnd.Artifact{}, &rnd.RenderError{Field: "pdf", Reason: "chrome exited"})
	handler := newTestReportHandler(mockService)

	req := httptest.NewRequest(http.MethodGet, "/S1/pdf", nil)
	w := httptest.NewRecorder()
	handler.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "/errors/report/render")
}

func TestReportHandler_Archive(t *testing.T) {
	t.Run("returns zip", func(t *testing.T) {
		mockService := new(MockReportService)
		mockService.On("Archive", "", rnd.TargetPDF).Return([]byte("PK\x03\x04"), nil)
		handler := newTestReportHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/archive", strings.NewReader(`{"format":"pdf"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.Routes().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, rnd.MIMEZIP, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "reports_pdf.zip")
		mockService.AssertExpectations(t)
	})

	t.Run("invalid format rejected", func(t *testing.T) {
		mockService := new(MockReportService)
		handler := newTestReportHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/archive", strings.NewReader(`{"format":"xlsx"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.Routes().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "format")
		mockService.AssertNotCalled(t, "Archive")
	})

	t.Run("wrong content type rejected", func(t *testing.T) {
		mockService := new(MockReportService)
		handler := newTestReportHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/archive", strings.NewReader("format=pdf"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		handler.Routes().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
		mockService.AssertNotCalled(t, "Archive")
	})

	t.Run("missing format rejected", func(t *testing.T) {
		mockService := new(MockReportService)
		handler := newTestReportHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/archive", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.Routes().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "Archive")
	})

	t.Run("malformed session id rejected", func(t *testing.T) {
		mockService := new(MockReportService)
		handler := newTestReportHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/archive",
			strings.NewReader(`{"format":"pdf","session_id":"not-a-uuid"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.Routes().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "Archive")
	})

	t.Run("no data loaded", func(t *testing.T) {
		mockService := new(MockReportService)
		mockService.On("Archive", "", rnd.TargetDOCX).Return(nil, apierrors.ErrNoDataLoaded)
		handler := newTestReportHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/archive", strings.NewReader(`{"format":"docx"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.Routes().ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "/errors/analysis/no-data")
	})
}
