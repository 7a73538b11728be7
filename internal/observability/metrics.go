// Package observability records run metrics for the batch build and writes
// them in the node exporter textfile format.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const defaultNamespace = "productspace"

// Metrics holds the counters of one build run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	FilesProcessed   prometheus.Counter
	RowsRead         prometheus.Counter
	RowsDropped      prometheus.Counter
	ProductsKept     *prometheus.GaugeVec
	YearTotalValue   *prometheus.GaugeVec
	UnmatchedNames   prometheus.Gauge
	RunDuration      prometheus.Gauge
	LastSuccessfulAt prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = defaultNamespace
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Trade-flow files aggregated",
		}),
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Trade-flow data rows read",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows dropped for unparsable fields or the value floor",
		}),
		ProductsKept: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "products_kept",
			Help:      "Products kept per year after truncation",
		}, []string{"year"}),
		YearTotalValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "year_total_value_kusd",
			Help:      "Pre-truncation trade value per year",
		}, []string{"year"}),
		UnmatchedNames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unmatched_product_rows",
			Help:      "Kept rows whose code is missing from the product code table",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last build",
		}),
		LastSuccessfulAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful build",
		}),
	}

	m.registry.MustRegister(
		m.FilesProcessed,
		m.RowsRead,
		m.RowsDropped,
		m.ProductsKept,
		m.YearTotalValue,
		m.UnmatchedNames,
		m.RunDuration,
		m.LastSuccessfulAt,
	)
	return m
}

func (m *Metrics) RecordYear(year int, kept int, total float64) {
	label := fmt.Sprintf("%d", year)
	m.ProductsKept.WithLabelValues(label).Set(float64(kept))
	m.YearTotalValue.WithLabelValues(label).Set(total)
}

func (m *Metrics) RecordSuccess(started, finished time.Time) {
	m.RunDuration.Set(finished.Sub(started).Seconds())
	m.LastSuccessfulAt.Set(float64(finished.Unix()))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the registry to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
