// Package metrics exposes Prometheus collectors for the task monitor.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/testops/taskwatch/internal/stream"
)

const namespace = "taskwatch"

// Metrics holds the monitor's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	pollDuration    *prometheus.HistogramVec
	detailFetches   *prometheus.CounterVec
	streamFrames    *prometheus.CounterVec
	streamReconnect prometheus.Counter
	streamConnected prometheus.Gauge
	tasksListed     prometheus.Gauge
	notices         *prometheus.CounterVec
}

var _ stream.Observer = (*Metrics)(nil)

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns metrics registered with the global Prometheus registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew registers the collectors with reg, reusing collectors that are
// already registered under the same name. Other registration errors panic.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		pollDuration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "duration_seconds",
				Help:      "Duration of task list polls.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		)),
		detailFetches: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "detail",
				Name:      "fetches_total",
				Help:      "Task detail fetches by outcome.",
			},
			[]string{"outcome"},
		)),
		streamFrames: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "frames_total",
				Help:      "Stream frames by classification.",
			},
			[]string{"outcome"},
		)),
		streamReconnect: register(reg, prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "reconnects_total",
				Help:      "Stream reconnection attempts.",
			},
		)),
		streamConnected: register(reg, prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "connected",
				Help:      "1 while the selected task's stream is open.",
			},
		)),
		tasksListed: register(reg, prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tasks_listed",
				Help:      "Number of tasks in the directory after the last poll.",
			},
		)),
		notices: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notices_total",
				Help:      "User-visible notices by kind.",
			},
			[]string{"kind"},
		)),
	}
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObservePoll records one poll and, on success, the resulting list size.
func (m *Metrics) ObservePoll(d time.Duration, err error, listed int) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	} else {
		m.tasksListed.Set(float64(listed))
	}
	m.pollDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveDetailFetch counts a detail fetch.
func (m *Metrics) ObserveDetailFetch(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.detailFetches.WithLabelValues(outcome).Inc()
}

// IncNotice counts a notice shown to the user.
func (m *Metrics) IncNotice(kind string) {
	if m == nil {
		return
	}
	m.notices.WithLabelValues(kind).Inc()
}

// FrameClassified implements stream.Observer.
func (m *Metrics) FrameClassified(outcome string) {
	if m == nil {
		return
	}
	m.streamFrames.WithLabelValues(outcome).Inc()
}

// Reconnecting implements stream.Observer.
func (m *Metrics) Reconnecting(string, int) {
	if m == nil {
		return
	}
	m.streamReconnect.Inc()
}

// ConnectionChanged implements stream.Observer.
func (m *Metrics) ConnectionChanged(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.streamConnected.Set(1)
	} else {
		m.streamConnected.Set(0)
	}
}
