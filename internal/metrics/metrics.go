package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records conversion and retrieval activity.
type Metrics interface {
	ObserveBatch(status string, files int, durationSeconds float64)
	IncConverted(format string)
	IncDownload(kind, status string)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) ObserveBatch(string, int, float64) {}
func (Noop) IncConverted(string)               {}
func (Noop) IncDownload(string, string)        {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	batches        *prometheus.CounterVec
	batchFiles     prometheus.Histogram
	batchDuration  *prometheus.HistogramVec
	filesConverted *prometheus.CounterVec
	downloads      *prometheus.CounterVec
	once           sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Conversion batches by outcome",
		}, []string{"status"}),
		batchFiles: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_files",
			Help:      "Files per conversion batch",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time spent converting a batch",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		filesConverted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_converted_total",
			Help:      "Converted files by output format",
		}, []string{"format"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Retrieval requests by kind (file, zip) and status",
		}, []string{"kind", "status"}),
	}
	return p
}

// Register adds the collectors to reg once.
func (p *Prom) Register(reg prometheus.Registerer) error {
	var err error
	p.once.Do(func() {
		for _, c := range []prometheus.Collector{p.batches, p.batchFiles, p.batchDuration, p.filesConverted, p.downloads} {
			if err = reg.Register(c); err != nil {
				return
			}
		}
	})
	return err
}

func (p *Prom) ObserveBatch(status string, files int, durationSeconds float64) {
	p.batches.WithLabelValues(status).Inc()
	p.batchFiles.Observe(float64(files))
	p.batchDuration.WithLabelValues(status).Observe(durationSeconds)
}

func (p *Prom) IncConverted(format string) {
	p.filesConverted.WithLabelValues(format).Inc()
}

func (p *Prom) IncDownload(kind, status string) {
	p.downloads.WithLabelValues(kind, status).Inc()
}

// Handler returns an HTTP handler for /metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
