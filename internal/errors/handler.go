package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/render"

	"acadreport/internal/infrastructure"
	"acadreport/internal/ingest"
	"acadreport/internal/match"
	rnd "acadreport/internal/render"
)

// ErrorHandler converts service and domain errors to RFC 7807 responses.
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler. includeStack attaches stack
// traces to responses and should stay off outside development.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError logs the error and responds with problem details.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := infrastructure.GetTraceID(r.Context())

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem maps an error to RFC 7807 Problem Details. Upload format
// problems are client errors; duplicate keys are well-formed input the
// matcher refuses, so they map to 422.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	var formatErr *ingest.FormatError
	if errors.As(err, &formatErr) {
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeFormat,
			"Upload Format Error",
			formatErr.Error(),
			r.URL.Path,
		).WithExtension("source", string(formatErr.Source)).
			WithExtension("line", formatErr.Line).
			WithExtension("column", formatErr.Column)
	}

	var dupErr *match.DuplicateKeyError
	if errors.As(err, &dupErr) {
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeDuplicateKey,
			"Duplicate Student Key",
			dupErr.Error(),
			r.URL.Path,
		).WithExtension("student_key", dupErr.Key).
			WithExtension("source", string(dupErr.Source)).
			WithExtension("lines", dupErr.Lines)
	}

	var renderErr *rnd.RenderError
	if errors.As(err, &renderErr) {
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeRender,
			"Report Rendering Failed",
			renderErr.Error(),
			r.URL.Path,
		).WithExtension("field", renderErr.Field)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	switch {
	case errors.Is(err, ErrSessionNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeSessionNotFound,
			"Session Not Found",
			"No analysis session with that id. Upload spreadsheets first.",
			r.URL.Path,
		)

	case errors.Is(err, ErrStudentNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeStudentNotFound,
			"Student Not Found",
			"No student with that id in the current analysis",
			r.URL.Path,
		)

	case errors.Is(err, ErrNoDataLoaded):
		return NewProblemDetails(
			http.StatusConflict,
			TypeNoData,
			"No Data Loaded",
			"No spreadsheets have been analyzed yet",
			r.URL.Path,
		)

	case errors.Is(err, ErrUnsupportedFile):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeUnsupportedFile,
			"Unsupported File Type",
			"Only .csv and .xlsx uploads are accepted",
			r.URL.Path,
		)

	case errors.Is(err, ErrFileTooLarge):
		return NewProblemDetails(
			http.StatusRequestEntityTooLarge,
			TypePayloadTooLarge,
			"Payload Too Large",
			"The uploaded file exceeds the maximum allowed size",
			r.URL.Path,
		)

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request",
			r.URL.Path,
		)
	}
}

// apiErrorToProblem converts APIError to ProblemDetails.
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST", "MISSING_PARAMETER":
		problemType = TypeValidation
	case "NOT_FOUND":
		problemType = TypeNotFound
	case "CONFLICT":
		problemType = TypeConflict
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	case "SERVICE_UNAVAILABLE":
		problemType = TypeServiceDown
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}

	return problem
}

// HandlePanic recovers from panics and responds with a 500 problem.
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := infrastructure.GetTraceID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 problem.
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 problem.
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeInternal,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))

	render.Render(w, r, problem)
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
