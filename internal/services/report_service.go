package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"acadreport/internal/infrastructure"
	"acadreport/internal/match"
	"acadreport/internal/render"
	"acadreport/internal/report"
)

// archiveConcurrency bounds parallel renders during a bulk export. PDF
// conversion spawns a browser per render, so this stays small.
const archiveConcurrency = 4

// ReportService renders report artifacts for analyzed students.
type ReportService struct {
	analysis *AnalysisService
	builder  *report.Builder
	renderer *render.Renderer
	metrics  *infrastructure.Metrics
	logger   *slog.Logger
}

// NewReportService creates the report service. metrics may be nil.
func NewReportService(analysis *AnalysisService, builder *report.Builder, renderer *render.Renderer, metrics *infrastructure.Metrics, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		analysis: analysis,
		builder:  builder,
		renderer: renderer,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "report_service")),
	}
}

// Report renders a single student's report in the requested format.
// An empty sessionID means the latest session.
func (s *ReportService) Report(ctx context.Context, sessionID, studentID string, target render.Target) (render.Artifact, error) {
	profile, err := s.analysis.Student(sessionID, studentID)
	if err != nil {
		return render.Artifact{}, err
	}

	start := time.Now()
	artifact, err := s.renderer.Render(ctx, s.builder.Build(profile), target)
	if err != nil {
		return render.Artifact{}, fmt.Errorf("render report for %s: %w", profile.StudentKey, err)
	}
	s.observeRender(target, time.Since(start))

	s.logger.InfoContext(ctx, "report rendered",
		slog.String("student_key", profile.StudentKey),
		slog.String("format", string(target)),
		slog.Int("bytes", len(artifact.Bytes)),
	)

	return artifact, nil
}

// Archive renders every student of the session and bundles the artifacts
// into one ZIP, entries ordered by student key. One failing render fails the
// whole archive.
func (s *ReportService) Archive(ctx context.Context, sessionID string, target render.Target) ([]byte, error) {
	session, err := s.analysis.resolve(sessionID)
	if err != nil {
		return nil, err
	}

	keys := match.SortedKeys(session.Profiles)
	artifacts := make([]render.Artifact, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(archiveConcurrency)

	var mu sync.Mutex
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			start := time.Now()
			artifact, err := s.renderer.Render(gctx, s.builder.Build(session.Profiles[key]), target)
			if err != nil {
				return fmt.Errorf("render report for %s: %w", key, err)
			}
			s.observeRender(target, time.Since(start))

			mu.Lock()
			artifacts[i] = artifact
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, artifact := range artifacts {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     artifact.Filename,
			Method:   zip.Deflate,
			Modified: session.CreatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("archive entry %s: %w", artifact.Filename, err)
		}
		if _, err := w.Write(artifact.Bytes); err != nil {
			return nil, fmt.Errorf("archive entry %s: %w", artifact.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	s.logger.InfoContext(ctx, "report archive built",
		slog.String("session_id", session.ID),
		slog.String("format", string(target)),
		slog.Int("reports", len(artifacts)),
		slog.Int("bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

func (s *ReportService) observeRender(target render.Target, d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ReportsRendered.WithLabelValues(string(target)).Inc()
	s.metrics.RenderDuration.WithLabelValues(string(target)).Observe(d.Seconds())
}
