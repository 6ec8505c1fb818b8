// Package metrics exposes pipeline statistics as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/woozymasta/zonemap/internal/pipeline"
)

// Entity outcome label values.
const (
	OutcomeFeature     = "feature"
	OutcomeFiltered    = "filtered"
	OutcomeOutOfDomain = "out_of_domain"
	OutcomeInvalid     = "invalid"
)

// Collector bundles the pipeline metrics. It implements pipeline.Recorder.
type Collector struct {
	gatherer prometheus.Gatherer

	Entities        *prometheus.CounterVec
	OutsideEnvelope *prometheus.CounterVec
	Batches         *prometheus.CounterVec
	Superseded      *prometheus.CounterVec
	BatchDurations  *prometheus.HistogramVec
}

var _ pipeline.Recorder = (*Collector)(nil)

// NewCollector registers the pipeline metrics against reg, defaulting to
// the global Prometheus registry when nil. Registering twice on the same
// registry returns the already registered collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	entities, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonemap_entities_total",
		Help: "Entities processed, labeled by country and outcome.",
	}, []string{"country", "outcome"}), "zonemap_entities_total")
	if err != nil {
		return nil, err
	}

	outside, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonemap_features_outside_envelope_total",
		Help: "Features whose centroid lies outside the country validity envelope.",
	}, []string{"country"}), "zonemap_features_outside_envelope_total")
	if err != nil {
		return nil, err
	}

	batches, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonemap_batches_total",
		Help: "Completed batches, labeled by country.",
	}, []string{"country"}), "zonemap_batches_total")
	if err != nil {
		return nil, err
	}

	superseded, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonemap_batches_superseded_total",
		Help: "Batches discarded because a newer batch replaced them.",
	}, []string{"country"}), "zonemap_batches_superseded_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zonemap_batch_duration_seconds",
		Help:    "Batch conversion latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"country"}), "zonemap_batch_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		Entities:        entities,
		OutsideEnvelope: outside,
		Batches:         batches,
		Superseded:      superseded,
		BatchDurations:  durations,
	}, nil
}

// ObserveBatch records the statistics of one completed batch.
func (c *Collector) ObserveBatch(country string, stats pipeline.Stats, elapsed time.Duration) {
	if c == nil {
		return
	}

	c.Entities.WithLabelValues(country, OutcomeFeature).Add(float64(stats.Features))
	c.Entities.WithLabelValues(country, OutcomeFiltered).Add(float64(stats.Filtered))
	c.Entities.WithLabelValues(country, OutcomeOutOfDomain).Add(float64(stats.OutOfDomain))
	c.Entities.WithLabelValues(country, OutcomeInvalid).Add(float64(stats.Invalid))
	c.OutsideEnvelope.WithLabelValues(country).Add(float64(stats.OutsideEnvelope))
	c.Batches.WithLabelValues(country).Inc()
	c.BatchDurations.WithLabelValues(country).Observe(elapsed.Seconds())
}

// ObserveSuperseded counts a batch discarded by the dispatcher.
func (c *Collector) ObserveSuperseded(country string) {
	if c == nil {
		return
	}
	c.Superseded.WithLabelValues(country).Inc()
}

// WriteTextfile writes every metric of the collector's registry to path
// in the node exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return errors.Wrapf(prometheus.WriteToTextfile(path, gatherer), "write metrics to %s", path)
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
