// Package metrics holds the Prometheus collectors of a conversion run.
//
// A run is a batch job, so the collectors live on their own registry and are
// written to a node-exporter textfile when the run ends instead of being
// scraped.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the run collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Registry *prometheus.Registry

	ImagesTotal         prometheus.Counter
	ImageFailuresTotal  prometheus.Counter
	AnnotationsTotal    *prometheus.CounterVec
	RegionsDroppedTotal prometheus.Counter
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	ImageDurationMs     prometheus.Histogram
	LastRunAnnotations  prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ImagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mask2coco_images_total",
			Help: "Total number of mask images processed",
		}),
		ImageFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mask2coco_image_failures_total",
			Help: "Total number of mask images that could not be read or decoded",
		}),
		AnnotationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mask2coco_annotations_total",
			Help: "Total number of annotations produced",
		}, []string{"category"}),
		RegionsDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mask2coco_regions_dropped_total",
			Help: "Total number of masks with pixels of a color that yielded no region",
		}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mask2coco_cache_hits_total",
			Help: "Total region cache hits",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mask2coco_cache_misses_total",
			Help: "Total region cache misses",
		}),
		ImageDurationMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mask2coco_image_duration_ms",
			Help:    "Per-image processing duration in milliseconds",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
		}),
		LastRunAnnotations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mask2coco_last_run_annotations",
			Help: "Number of annotations written by the last run",
		}),
	}

	m.Registry.MustRegister(
		m.ImagesTotal,
		m.ImageFailuresTotal,
		m.AnnotationsTotal,
		m.RegionsDroppedTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ImageDurationMs,
		m.LastRunAnnotations,
	)
	return m
}

// ObserveImage records one processed image.
func (m *Metrics) ObserveImage(ms float64, failed bool) {
	if m == nil {
		return
	}
	m.ImagesTotal.Inc()
	m.ImageDurationMs.Observe(ms)
	if failed {
		m.ImageFailuresTotal.Inc()
	}
}

// AddAnnotations counts n annotations of a category.
func (m *Metrics) AddAnnotations(category string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.AnnotationsTotal.WithLabelValues(category).Add(float64(n))
}

// RegionDropped counts a color present in a mask that traced to nothing.
func (m *Metrics) RegionDropped() {
	if m == nil {
		return
	}
	m.RegionsDroppedTotal.Inc()
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
	} else {
		m.CacheMissesTotal.Inc()
	}
}

// WriteTextfile writes the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
