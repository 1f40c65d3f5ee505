// Package metrics exports transfer activity to Prometheus. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"errors"
	"fmt"
	"time"

	// Packages
	prometheus "github.com/prometheus/client_golang/prometheus"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type Metrics struct {
	duration   *prometheus.HistogramVec
	failures   *prometheus.CounterVec
	bytes      prometheus.Counter
	deleted    *prometheus.CounterVec
	thumbnails *prometheus.CounterVec
	handles    prometheus.Gauge
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	namespace = "transfer"

	OpPresign   = "presign"
	OpUpload    = "upload"
	OpDelete    = "delete"
	OpView      = "view"
	OpThumbnail = "thumbnail"

	OutcomeDeleted     = "deleted"
	OutcomeUnconfirmed = "unconfirmed"
	OutcomeFound       = "found"
	OutcomeNotFound    = "not_found"
	OutcomeError       = "error"
)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates the collectors and registers them with reg, or the default
// registerer when reg is nil. Collectors which are already registered are
// reused, so New may be called more than once against the same registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	var err error
	m := new(Metrics)
	m.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Latency of transfer operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"}), err)
	m.failures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operation_errors_total",
		Help:      "Count of failed transfer operations.",
	}, []string{"operation"}), err)
	m.bytes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploaded_bytes_total",
		Help:      "Cumulative payload size successfully written to object storage.",
	}), err)
	m.deleted, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deleted_objects_total",
		Help:      "Objects sent for deletion, by backend outcome.",
	}, []string{"outcome"}), err)
	m.thumbnails, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "thumbnail_fetches_total",
		Help:      "Thumbnail fetches, by outcome.",
	}, []string{"outcome"}), err)
	m.handles, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "thumbnail_handles",
		Help:      "Number of live thumbnail handles.",
	}), err)
	if err != nil {
		return nil, err
	}

	// Return success
	return m, nil
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Observe records the duration and outcome of an operation
func (m *Metrics) Observe(op string, since time.Time, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(op).Observe(time.Since(since).Seconds())
	if err != nil {
		m.failures.WithLabelValues(op).Inc()
	}
}

// Uploaded adds to the count of bytes written
func (m *Metrics) Uploaded(bytes int64) {
	if m == nil || bytes <= 0 {
		return
	}
	m.bytes.Add(float64(bytes))
}

// Deleted records the per-key outcome of a batch deletion
func (m *Metrics) Deleted(deleted, unconfirmed int) {
	if m == nil {
		return
	}
	m.deleted.WithLabelValues(OutcomeDeleted).Add(float64(deleted))
	m.deleted.WithLabelValues(OutcomeUnconfirmed).Add(float64(unconfirmed))
}

// Thumbnail records the outcome of one thumbnail fetch
func (m *Metrics) Thumbnail(outcome string) {
	if m == nil {
		return
	}
	m.thumbnails.WithLabelValues(outcome).Inc()
}

// HandleAcquired and HandleReleased track live thumbnail handles
func (m *Metrics) HandleAcquired() {
	if m == nil {
		return
	}
	m.handles.Inc()
}

func (m *Metrics) HandleReleased() {
	if m == nil {
		return
	}
	m.handles.Dec()
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// register adds a collector to reg, returning the existing collector when one
// with the same descriptor is already registered. A non-nil err is passed
// through so that calls can be chained.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, err error) (T, error) {
	if err != nil {
		return c, err
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metrics: %w", err)
	}
	return c, nil
}
