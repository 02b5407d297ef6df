package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"acadreport/internal/config"
	apierrors "acadreport/internal/errors"
	"acadreport/internal/infrastructure"
	customMiddleware "acadreport/internal/middleware"
	rnd "acadreport/internal/render"
	"acadreport/internal/report"
	"acadreport/internal/services"
	handlers "acadreport/internal/transport/http"
	"acadreport/pkg/contracts"
)

// AppName is the human-readable service name.
const AppName = "acadreport"

// Application wires configuration, services, and the HTTP server together.
type Application struct {
	Config *config.Config
	Router *chi.Mux
	Server *http.Server
	Logger *slog.Logger

	Metrics         *infrastructure.Metrics
	AnalysisService *services.AnalysisService
	ReportService   *services.ReportService
	HealthService   *services.HealthService
}

// NewApplication creates the application with all dependencies injected.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	return NewApplicationWithConfig(cfg, logger)
}

// NewApplicationWithConfig builds the application from an existing
// configuration and logger. Tests use it to avoid touching the environment.
func NewApplicationWithConfig(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	app := &Application{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices constructs the service layer in dependency order.
func (a *Application) initializeServices() error {
	a.Metrics = infrastructure.NewMetrics()

	a.AnalysisService = services.NewAnalysisService(a.Logger, a.Metrics)

	branding := rnd.Branding{
		Institution: a.Config.Report.Institution,
		Department:  a.Config.Report.Department,
		Title:       a.Config.Report.Title,
		Signatory:   a.Config.Report.Signatory,
	}

	var pdfOpts []rnd.ChromeOption
	if a.Config.Report.ChromePath != "" {
		pdfOpts = append(pdfOpts, rnd.WithExecPath(a.Config.Report.ChromePath))
	}
	if a.Config.Report.RenderTimeout > 0 {
		pdfOpts = append(pdfOpts, rnd.WithTimeout(a.Config.Report.RenderTimeout))
	}
	renderer := rnd.New(branding, rnd.NewChromePDF(pdfOpts...))

	builder := report.NewBuilder(report.Thresholds{
		PassMark:         a.Config.Report.PassMark,
		AttendanceRed:    a.Config.Report.AttendanceRed,
		AttendanceYellow: a.Config.Report.AttendanceYellow,
	})

	a.ReportService = services.NewReportService(a.AnalysisService, builder, renderer, a.Metrics, a.Logger)
	a.HealthService = services.NewHealthService(contracts.Version, a.AnalysisService, a.Logger)

	return nil
}

// setupRouter configures the HTTP router with all routes and middleware.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	errorHandler := apierrors.NewErrorHandler(a.Logger, false)
	errorMiddleware := apierrors.NewErrorMiddleware(errorHandler, a.Logger)

	// Ordering: RequestID -> RealIP -> logging/recovery -> the rest.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)
	r.Use(errorMiddleware.Handler)
	r.Use(customMiddleware.SecurityHeaders)
	r.Use(customMiddleware.Compress(5))

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.corsConfig()))
	}

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r, errorHandler)

	// Metrics endpoint stays outside the timeout group.
	r.Handle("/metrics", a.Metrics.Handler())

	a.Router = r
}

// setupAPIRoutes configures the /api endpoints.
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	validator := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)

	analysisHandler := handlers.NewAnalysisHandler(
		a.AnalysisService,
		a.Config.Upload.MaxFileBytes,
		a.Logger,
		errorHandler,
	)
	reportHandler := handlers.NewReportHandler(a.ReportService, validator, a.Logger, errorHandler)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))
			r.Get("/health", healthHandler.HealthCheck)
			r.Get("/health/ready", healthHandler.ReadinessCheck)
			r.Get("/health/live", healthHandler.LivenessCheck)
			r.Get("/version", healthHandler.Version)
		})

		// Uploads and report rendering can run long; the write timeout on
		// the server bounds them rather than a per-route timeout.
		r.Mount("/", analysisHandler.Routes())
		r.Mount("/reports", reportHandler.Routes())
	})
}

// corsConfig translates security configuration into CORS settings.
func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins:   a.Config.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

// createServer builds the HTTP server from configuration.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start launches the HTTP server in the background. On listener failure the
// supplied cancel func is invoked so Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting server",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "server started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop shuts the server down gracefully within the configured timeout.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.ErrorContext(ctx, "failed to close log file", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}

// Run starts the application and blocks until interrupted.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
