package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// HealthService answers liveness and readiness probes.
type HealthService struct {
	version   string
	startTime time.Time
	analysis  *AnalysisService
	logger    *slog.Logger
}

// HealthStatus is the health check response body.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Analysis  map[string]interface{} `json:"analysis,omitempty"`
}

// NewHealthService creates a new health service.
func NewHealthService(version string, analysis *AnalysisService, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		startTime: time.Now(),
		analysis:  analysis,
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// Health reports process health plus a snapshot of the analysis state.
func (s *HealthService) Health(ctx context.Context) HealthStatus {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   s.version,
		Runtime: map[string]interface{}{
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
			"alloc_bytes":    m.Alloc,
			"uptime_seconds": time.Since(s.startTime).Seconds(),
		},
	}

	if session, err := s.analysis.Latest(); err == nil {
		status.Analysis = map[string]interface{}{
			"session_id":     session.ID,
			"created_at":     session.CreatedAt,
			"total_students": session.Summary.Total,
		}
	}

	return status
}

// Ready reports whether the service can accept traffic. The service has no
// external dependencies to probe, so readiness tracks liveness.
func (s *HealthService) Ready(ctx context.Context) bool {
	return true
}
