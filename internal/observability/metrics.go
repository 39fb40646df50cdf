package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// notice extraction pipeline.
type Metrics struct {
	NoticesDiscovered  prometheus.Counter
	ImagesProcessed    prometheus.Counter
	ImageFailures      *prometheus.CounterVec // labels: stage={fetch,decode,ocr,extract}
	SchedulesExtracted prometheus.Counter
	NoticesUpserted    prometheus.Counter
	PipelineRunning    prometheus.Gauge

	RunDuration prometheus.Histogram
	OCRDuration prometheus.Histogram

	// Generative model metrics.
	ModelCalls   *prometheus.CounterVec // labels: model, outcome={success,overloaded,error}
	ModelRetries prometheus.Counter

	// Reference loading metrics.
	ReferenceLoads *prometheus.CounterVec // labels: source={cache,remote}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.NoticesDiscovered,
		m.ImagesProcessed,
		m.ImageFailures,
		m.SchedulesExtracted,
		m.NoticesUpserted,
		m.PipelineRunning,
		m.RunDuration,
		m.OCRDuration,
		m.ModelCalls,
		m.ModelRetries,
		m.ReferenceLoads,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can construct fresh instances without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		NoticesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outage_etl",
			Name:      "notices_discovered_total",
			Help:      "Total announcements discovered on the index page.",
		}),
		ImagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outage_etl",
			Name:      "images_processed_total",
			Help:      "Total notice images run through the OCR/extraction stages.",
		}),
		ImageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outage_etl",
			Name:      "image_failures_total",
			Help:      "Per-image failures absorbed at the isolation boundary, by stage.",
		}, []string{"stage"}),
		SchedulesExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outage_etl",
			Name:      "schedules_extracted_total",
			Help:      "Total schedule candidates decoded from model responses.",
		}),
		NoticesUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outage_etl",
			Name:      "notices_upserted_total",
			Help:      "Total notice rows written to the store.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "outage_etl",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in flight, 0 otherwise.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "outage_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete discover-extract-validate run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		OCRDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "outage_etl",
			Name:      "ocr_duration_seconds",
			Help:      "Duration of preprocessing plus recognition per image.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ModelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outage_etl",
			Name:      "model_calls_total",
			Help:      "Generative model calls by model and outcome.",
		}, []string{"model", "outcome"}),
		ModelRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outage_etl",
			Name:      "model_retries_total",
			Help:      "Retries triggered by overload-class model failures.",
		}),
		ReferenceLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outage_etl",
			Name:      "reference_loads_total",
			Help:      "Reference tree loads by source.",
		}, []string{"source"}),
	}
}
