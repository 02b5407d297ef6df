package infrastructure

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the report service.
type Metrics struct {
	registry *prometheus.Registry

	UploadsTotal    *prometheus.CounterVec
	ParseFailures   *prometheus.CounterVec
	AnalysesTotal   prometheus.Counter
	StudentsMatched prometheus.Gauge
	ReportsRendered *prometheus.CounterVec
	RenderDuration  *prometheus.HistogramVec
}

// NewMetrics builds the instrument set on a private registry so tests can
// create as many instances as they need without duplicate-registration
// panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		UploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acadreport_uploads_total",
			Help: "Spreadsheet uploads received, by source and outcome.",
		}, []string{"source", "outcome"}),
		ParseFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acadreport_parse_failures_total",
			Help: "Uploads rejected at parse time, by source.",
		}, []string{"source"}),
		AnalysesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "acadreport_analyses_total",
			Help: "Completed analyze operations.",
		}),
		StudentsMatched: factory.NewGauge(prometheus.GaugeOpts{
			Name: "acadreport_students_current",
			Help: "Students in the most recent analysis.",
		}),
		ReportsRendered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acadreport_reports_rendered_total",
			Help: "Rendered report artifacts, by format.",
		}, []string{"format"}),
		RenderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "acadreport_render_duration_seconds",
			Help:    "Time spent rendering a single report.",
			Buckets: prometheus.DefBuckets,
		}, []string{"format"}),
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
