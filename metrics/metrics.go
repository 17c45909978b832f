// Package metrics exports inheritance engine measurements to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-ancestor"
)

const namespace = "ancestor"

var _ ancestor.Recorder = (*Collector)(nil)

// Collector implements ancestor.Recorder with Prometheus collectors.
type Collector struct {
	resolutions *prometheus.CounterVec
	hops        prometheus.Histogram
	forwarded   *prometheus.CounterVec
	suppressed  *prometheus.CounterVec
	configErrs  *prometheus.CounterVec
}

// New creates a Collector and registers it with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Property reads resolved, by property and hop count",
		}, []string{"property", "hops"}),
		hops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_hops",
			Help:      "Ancestors consulted per property read",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		forwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_forwarded_total",
			Help:      "Ancestor changes re-emitted by descendants",
		}, []string{"property"}),
		suppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_suppressed_total",
			Help:      "Ancestor changes not forwarded because the property was shadowed",
		}, []string{"property"}),
		configErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "configuration_errors_total",
			Help:      "Types rejected while computing their schema",
		}, []string{"type"}),
	}
	if reg == nil {
		return c, nil
	}
	if err := register(reg, &c.resolutions); err != nil {
		return nil, err
	}
	if err := register(reg, &c.hops); err != nil {
		return nil, err
	}
	if err := register(reg, &c.forwarded); err != nil {
		return nil, err
	}
	if err := register(reg, &c.suppressed); err != nil {
		return nil, err
	}
	if err := register(reg, &c.configErrs); err != nil {
		return nil, err
	}
	return c, nil
}

// register adds *collector to reg. When an equal collector is already
// registered, *collector is replaced by it so observations reach reg.
func register[C prometheus.Collector](reg prometheus.Registerer, collector *C) error {
	err := reg.Register(*collector)
	if err == nil {
		return nil
	}
	var already prometheus.AlreadyRegisteredError
	if !errors.As(err, &already) {
		return err
	}
	existing, ok := already.ExistingCollector.(C)
	if !ok {
		return fmt.Errorf("metrics: registered collector is %T: %w", already.ExistingCollector, err)
	}
	*collector = existing
	return nil
}

// MustNew is New that panics on error.
func MustNew(reg prometheus.Registerer) *Collector {
	c, err := New(reg)
	if err != nil {
		panic(err)
	}
	return c
}

// ObserveResolution records one property read.
func (c *Collector) ObserveResolution(property string, hops int) {
	c.resolutions.WithLabelValues(property, strconv.Itoa(hops)).Inc()
	c.hops.Observe(float64(hops))
}

// ChangeForwarded counts a change re-emitted by a descendant.
func (c *Collector) ChangeForwarded(property string) {
	c.forwarded.WithLabelValues(property).Inc()
}

// ChangeSuppressed counts an ancestor change not forwarded because the
// property was shadowed.
func (c *Collector) ChangeSuppressed(property string) {
	c.suppressed.WithLabelValues(property).Inc()
}

// ConfigurationError counts a misconfigured type.
func (c *Collector) ConfigurationError(typeName string) {
	c.configErrs.WithLabelValues(typeName).Inc()
}
