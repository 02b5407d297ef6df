package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "acadreport/internal/errors"
	"acadreport/internal/middleware"
	"acadreport/internal/services"
	"acadreport/pkg/contracts/domain"
)

// uploadFields maps multipart field names to row sources.
var uploadFields = map[string]domain.Source{
	"results_file":    domain.SourceResults,
	"attendance_file": domain.SourceAttendance,
}

// AnalysisHandler handles upload, roster, and profile requests.
type AnalysisHandler struct {
	service        AnalysisServiceInterface
	maxFileBytes   int64
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	validator      *middleware.ValidationMiddleware
	queryValidator *middleware.QueryParamValidator
}

// NewAnalysisHandler creates the analysis handler.
func NewAnalysisHandler(service AnalysisServiceInterface, maxFileBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		service:        service,
		maxFileBytes:   maxFileBytes,
		logger:         logger.With(slog.String("component", "analysis_handler")),
		errorHandler:   errorHandler,
		validator:      middleware.NewValidationMiddleware(logger, errorHandler),
		queryValidator: middleware.NewQueryParamValidator(logger, errorHandler),
	}
}

// Routes returns the analysis routes.
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/analyze", h.Analyze)

	r.Route("/students", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/", h.ListStudents)
		r.Get("/{studentID}", h.GetStudent)
	})

	r.Get("/exports/roster.csv", h.ExportRoster)

	return r
}

// uploadMeta holds the client-supplied attributes of one uploaded file.
type uploadMeta struct {
	Filename string `json:"filename" validate:"required,spreadsheet"`
}

// analyzeResponse is the body returned by POST /api/analyze.
type analyzeResponse struct {
	SessionID string                   `json:"session_id"`
	CreatedAt time.Time                `json:"created_at"`
	Summary   domain.MatchSummary      `json:"summary"`
	Students  []*domain.StudentProfile `json:"students"`
}

// Analyze handles POST /api/analyze. The request is a multipart form with a
// "results" file, an "attendance" file, or both.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	// Both files plus form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxFileBytes+1<<20)

	if err := r.ParseMultipartForm(h.maxFileBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.ErrFileTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(fmt.Errorf("expected multipart form: %w", err)))
		return
	}
	defer r.MultipartForm.RemoveAll()

	var uploads []services.Upload
	var openFiles []multipart.File
	defer func() {
		for _, f := range openFiles {
			f.Close()
		}
	}()

	for field, source := range uploadFields {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
		openFiles = append(openFiles, file)

		if header.Size > h.maxFileBytes {
			h.errorHandler.HandleError(w, r, apierrors.ErrFileTooLarge)
			return
		}
		if err := h.validator.ValidateStruct(uploadMeta{Filename: header.Filename}); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}

		uploads = append(uploads, services.Upload{
			Source:   source,
			Filename: header.Filename,
			Reader:   file,
		})
	}

	if len(uploads) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("files", `upload a "results_file", an "attendance_file", or both`))
		return
	}

	session, err := h.service.Analyze(r.Context(), uploads)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	students, err := h.service.Students(session.ID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, analyzeResponse{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
		Summary:   session.Summary,
		Students:  students,
	})
}

// studentsResponse is the body returned by GET /api/students.
type studentsResponse struct {
	Count    int                      `json:"count"`
	Students []*domain.StudentProfile `json:"students"`
}

// ListStudents handles GET /api/students. The optional status query
// parameter narrows the roster to one match status.
func (h *AnalysisHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	status, ok := h.queryValidator.ValidateEnum(w, r, "status",
		[]string{"all", "matched", "results-only", "attendance-only"}, "all")
	if !ok {
		return
	}

	students, err := h.service.Students(r.URL.Query().Get("session"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if status != "all" {
		filtered := make([]*domain.StudentProfile, 0, len(students))
		for _, s := range students {
			if s.MatchStatus == domain.MatchStatus(status) {
				filtered = append(filtered, s)
			}
		}
		students = filtered
	}

	render.JSON(w, r, studentsResponse{Count: len(students), Students: students})
}

// GetStudent handles GET /api/students/{studentID}.
func (h *AnalysisHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if studentID == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("studentID", "student id is required"))
		return
	}

	profile, err := h.service.Student(r.URL.Query().Get("session"), studentID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, profile)
}

// ExportRoster handles GET /api/exports/roster.csv. The export is buffered
// so failures still produce a clean problem response instead of a truncated
// CSV body.
func (h *AnalysisHandler) ExportRoster(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.ExportRoster(r.URL.Query().Get("session"), &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="roster.csv"`)
	w.Write(buf.Bytes())
}
