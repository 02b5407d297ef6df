// Package services holds the application services sitting between the HTTP
// transport and the domain packages.
//
// AnalysisService owns the upload-parse-match lifecycle and the in-memory
// session store. ReportService turns matched profiles into downloadable
// artifacts, one at a time or as a ZIP archive. HealthService answers the
// liveness and readiness probes. Services receive their dependencies through
// constructors and log through the injected slog logger.
package services
