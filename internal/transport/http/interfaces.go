package http

import (
	"context"
	"io"

	"acadreport/internal/render"
	"acadreport/internal/services"
	"acadreport/pkg/contracts/domain"
)

// AnalysisServiceInterface is the slice of AnalysisService the handlers use.
type AnalysisServiceInterface interface {
	Analyze(ctx context.Context, uploads []services.Upload) (*services.Session, error)
	Students(sessionID string) ([]*domain.StudentProfile, error)
	Student(sessionID, studentID string) (*domain.StudentProfile, error)
	ExportRoster(sessionID string, w io.Writer) error
}

// ReportServiceInterface is the slice of ReportService the handlers use.
type ReportServiceInterface interface {
	Report(ctx context.Context, sessionID, studentID string, target render.Target) (render.Artifact, error)
	Archive(ctx context.Context, sessionID string, target render.Target) ([]byte, error)
}
