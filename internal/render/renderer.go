package render

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"acadreport/pkg/contracts/domain"
)

// Target is the requested artifact format.
type Target string

const (
	TargetPDF  Target = "pdf"
	TargetDOCX Target = "docx"
)

// MIME types of the supported artifacts.
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEZIP  = "application/zip"
)

// Branding carries the institutional details stamped onto every report.
// It is passed in explicitly at startup; nothing here is read from globals.
type Branding struct {
	Institution string
	Department  string
	Title       string
	Signatory   string
}

// Artifact is a rendered document plus the metadata the API layer needs to
// serve it.
type Artifact struct {
	Bytes    []byte
	Filename string
	MIME     string
}

// RenderError reports a template/model mismatch. The builder's contract
// makes this unreachable for models it produces, so hitting it indicates a
// programming error, not bad user input.
type RenderError struct {
	Field  string
	Reason string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: field %q: %s", e.Field, e.Reason)
}

// PDFConverter converts a self-contained HTML document into PDF bytes.
type PDFConverter interface {
	Convert(ctx context.Context, html []byte) ([]byte, error)
}

// Renderer produces report artifacts from ReportModels. It never mutates the
// model it is given.
type Renderer struct {
	branding Branding
	pdf      PDFConverter
	now      func() time.Time
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock pins the renderer's notion of "now". Tests use it to make
// output byte-identical across runs.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// New creates a renderer. pdf may be nil when only DOCX output is needed.
func New(branding Branding, pdf PDFConverter, opts ...Option) *Renderer {
	r := &Renderer{branding: branding, pdf: pdf, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces the artifact for one model in the requested format.
func (r *Renderer) Render(ctx context.Context, m domain.ReportModel, target Target) (Artifact, error) {
	if err := guardModel(m); err != nil {
		return Artifact{}, err
	}
	generated := r.now()

	switch target {
	case TargetPDF:
		html, err := r.RenderHTML(m, generated)
		if err != nil {
			return Artifact{}, err
		}
		if r.pdf == nil {
			return Artifact{}, &RenderError{Field: "pdf", Reason: "no PDF converter configured"}
		}
		pdf, err := r.pdf.Convert(ctx, html)
		if err != nil {
			return Artifact{}, fmt.Errorf("convert HTML to PDF: %w", err)
		}
		return Artifact{Bytes: pdf, Filename: reportFilename(m, "pdf"), MIME: MIMEPDF}, nil

	case TargetDOCX:
		docx, err := r.RenderDOCX(m, generated)
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{Bytes: docx, Filename: reportFilename(m, "docx"), MIME: MIMEDOCX}, nil

	default:
		return Artifact{}, fmt.Errorf("unsupported render target %q", target)
	}
}

// guardModel checks the fields no template can do without.
func guardModel(m domain.ReportModel) error {
	if m.StudentID == "" {
		return &RenderError{Field: "student_id", Reason: "must not be empty"}
	}
	if m.StudentName == "" {
		return &RenderError{Field: "student_name", Reason: "must not be empty"}
	}
	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

func reportFilename(m domain.ReportModel, ext string) string {
	base := fmt.Sprintf("%s_%s_Report", m.StudentID, m.StudentName)
	return unsafeFilenameChars.ReplaceAllString(base, "_") + "." + ext
}
