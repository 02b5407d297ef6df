package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "acadreport/internal/errors"
	"acadreport/internal/middleware"
	rnd "acadreport/internal/render"
)

// ReportHandler serves single report downloads and bulk archives.
type ReportHandler struct {
	service      ReportServiceInterface
	validator    *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportHandler creates the report handler.
func NewReportHandler(service ReportServiceInterface, validator *middleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "report_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the report routes.
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/{studentID}", func(r chi.Router) {
		r.Use(h.StudentCtx)
		r.Get("/pdf", h.DownloadPDF)
		r.Get("/docx", h.DownloadDOCX)
	})

	r.With(middleware.ContentTypeValidator("application/json")).Post("/archive", h.Archive)

	return r
}

// StudentCtx validates the student id path parameter.
func (h *ReportHandler) StudentCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "studentID") == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("studentID", "student id is required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DownloadPDF handles GET /api/reports/{studentID}/pdf.
func (h *ReportHandler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, rnd.TargetPDF)
}

// DownloadDOCX handles GET /api/reports/{studentID}/docx.
func (h *ReportHandler) DownloadDOCX(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, rnd.TargetDOCX)
}

func (h *ReportHandler) download(w http.ResponseWriter, r *http.Request, target rnd.Target) {
	studentID := chi.URLParam(r, "studentID")
	sessionID := r.URL.Query().Get("session")

	artifact, err := h.service.Report(r.Context(), sessionID, studentID, target)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	serveArtifact(w, artifact.MIME, artifact.Filename, artifact.Bytes)
}

// archiveRequest is the body of POST /api/reports/archive.
type archiveRequest struct {
	Format    string `json:"format" validate:"required,oneof=pdf docx"`
	SessionID string `json:"session_id" validate:"omitempty,uuid4"`
}

// Archive handles POST /api/reports/archive: renders every student's report
// in the requested format and returns one ZIP.
func (h *ReportHandler) Archive(w http.ResponseWriter, r *http.Request) {
	var req archiveRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data, err := h.service.Archive(r.Context(), req.SessionID, rnd.Target(req.Format))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	serveArtifact(w, rnd.MIMEZIP, "reports_"+req.Format+".zip", data)
}

func serveArtifact(w http.ResponseWriter, mime, filename string, data []byte) {
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
