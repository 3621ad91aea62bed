// Package metrics exposes run counters in Prometheus form. Batch runs have no
// scrape endpoint, so the registry is written to a node-exporter textfile.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"mrc_prep/internal/pipeline"
	"mrc_prep/internal/prep"
)

type Collector struct {
	registry   *prometheus.Registry
	records    *prometheus.CounterVec
	skipped    *prometheus.CounterVec
	documents  *prometheus.CounterVec
	strategies *prometheus.CounterVec
	entities   *prometheus.CounterVec
	ceil       prometheus.Histogram
	stage      string
}

func New(stage string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		stage:    stage,
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mrcprep_records_total",
			Help: "Records transformed and written.",
		}, []string{"stage"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mrcprep_skipped_lines_total",
			Help: "Input lines skipped because they do not start with '{'.",
		}, []string{"stage"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mrcprep_documents_total",
			Help: "Documents processed.",
		}, []string{"stage"}),
		strategies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mrcprep_window_strategy_total",
			Help: "Documents windowed, by strategy.",
		}, []string{"strategy"}),
		entities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mrcprep_entities_total",
			Help: "Entities projected onto characters.",
		}, []string{"stage"}),
		ceil: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mrcprep_ceil_rougel",
			Help:    "Ceiling ROUGE-L of recovered answer spans.",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
	}
	c.registry.MustRegister(c.records, c.skipped, c.documents, c.strategies, c.entities, c.ceil)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Observe(_ int, o prep.Outcome) {
	c.records.WithLabelValues(c.stage).Inc()
	c.documents.WithLabelValues(c.stage).Add(float64(o.Documents))
	for _, s := range o.Strategies {
		c.strategies.WithLabelValues(string(s)).Inc()
	}
	c.entities.WithLabelValues(c.stage).Add(float64(o.Entities))
	if o.CeilRougeL != nil {
		c.ceil.Observe(*o.CeilRougeL)
	}
}

// Finish adds the stream-level counts and, when path is set, writes the textfile.
func (c *Collector) Finish(st pipeline.Stats, path string) error {
	c.skipped.WithLabelValues(c.stage).Add(float64(st.Skipped))
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
