package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acadreport/internal/ingest"
	"acadreport/internal/match"
	rnd "acadreport/internal/render"
	"acadreport/pkg/contracts/domain"
)

func newTestHandler() *ErrorHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewErrorHandler(logger, false)
}

func TestErrorToProblem_DomainTaxonomy(t *testing.T) {
	h := newTestHandler()
	r := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "format error is a client error",
			err:        &ingest.FormatError{Source: domain.SourceResults, Line: 3, Column: "math", Reason: "not a number"},
			wantStatus: http.StatusBadRequest,
			wantType:   TypeFormat,
		},
		{
			name:       "wrapped format error still recognized",
			err:        fmt.Errorf("parse upload: %w", &ingest.FormatError{Source: domain.SourceResults, Reason: "empty file"}),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeFormat,
		},
		{
			name:       "duplicate key is unprocessable",
			err:        &match.DuplicateKeyError{Key: "S3", Source: domain.SourceResults, Lines: [2]int{2, 5}},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeDuplicateKey,
		},
		{
			name:       "render error is a server error",
			err:        &rnd.RenderError{Field: "student_id", Reason: "must not be empty"},
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeRender,
		},
		{
			name:       "session not found",
			err:        fmt.Errorf("lookup: %w", ErrSessionNotFound),
			wantStatus: http.StatusNotFound,
			wantType:   TypeSessionNotFound,
		},
		{
			name:       "student not found",
			err:        ErrStudentNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   TypeStudentNotFound,
		},
		{
			name:       "no data loaded",
			err:        ErrNoDataLoaded,
			wantStatus: http.StatusConflict,
			wantType:   TypeNoData,
		},
		{
			name:       "unsupported file",
			err:        ErrUnsupportedFile,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeUnsupportedFile,
		},
		{
			name:       "file too large",
			err:        ErrFileTooLarge,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
		},
		{
			name:       "context timeout",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "unknown error stays opaque",
			err:        fmt.Errorf("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := h.ErrorToProblem(tt.err, r)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
		})
	}
}

func TestErrorToProblem_FormatErrorExtensions(t *testing.T) {
	h := newTestHandler()
	r := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)

	err := &ingest.FormatError{Source: domain.SourceAttendance, Line: 7, Column: "classes_held", Reason: "negative value"}
	problem := h.ErrorToProblem(err, r)

	assert.Equal(t, "attendance", problem.Extensions["source"])
	assert.Equal(t, 7, problem.Extensions["line"])
	assert.Equal(t, "classes_held", problem.Extensions["column"])
}

func TestErrorToProblem_DuplicateKeyExtensions(t *testing.T) {
	h := newTestHandler()
	r := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)

	err := &match.DuplicateKeyError{Key: "S3", Source: domain.SourceResults, Lines: [2]int{2, 5}}
	problem := h.ErrorToProblem(err, r)

	assert.Equal(t, "S3", problem.Extensions["student_key"])
	assert.Equal(t, "results", problem.Extensions["source"])
}

func TestHandleError_WritesProblemJSON(t *testing.T) {
	h := newTestHandler()
	r := httptest.NewRequest(http.MethodGet, "/api/students/S9", nil)
	w := httptest.NewRecorder()

	h.HandleError(w, r, ErrStudentNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeStudentNotFound, body["type"])
	assert.Equal(t, "/api/students/S9", body["instance"])
	assert.Contains(t, body, "trace_id")
}

func TestProblemDetails_MarshalIncludesExtensions(t *testing.T) {
	problem := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed", "bad field", "/api/analyze").
		WithExtension("field", "results")

	raw, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "results", body["field"])
	assert.EqualValues(t, http.StatusBadRequest, body["status"])
}

func TestAPIError_MapsToProblemType(t *testing.T) {
	h := newTestHandler()
	r := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)

	problem := h.ErrorToProblem(ErrValidation("semester", "must be numeric"), r)
	assert.Equal(t, http.StatusBadRequest, problem.Status)
	assert.Equal(t, TypeValidation, problem.Type)
	assert.Equal(t, "VALIDATION_FAILED", problem.Extensions["error_code"])
}

func TestHandlePanic(t *testing.T) {
	h := newTestHandler()
	r := httptest.NewRequest(http.MethodGet, "/api/students", nil)
	w := httptest.NewRecorder()

	h.HandlePanic(w, r, "boom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), TypeInternal)
}
