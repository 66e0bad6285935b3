// Package metrics exposes controller counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "led_service"

// QueueStats is read on every scrape.
type QueueStats interface {
	Accepted() uint64
	Dropped() uint64
	Len() int
}

// DebounceStats is read on every scrape.
type DebounceStats interface {
	Accepted() uint64
	Suppressed() uint64
}

type Metrics struct {
	reg *prometheus.Registry

	transitions   *prometheus.CounterVec
	hookFailures  *prometheus.CounterVec
	currentState  *prometheus.GaugeVec
	remotePresses prometheus.Counter

	states []string
}

// New registers all collectors on a private registry. states lists every
// state name so the current-state gauge has a zero series for each.
func New(q QueueStats, d DebounceStats, states []string) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "accepted_total",
		Help:      "Events accepted into the event queue",
	}, func() float64 { return float64(q.Accepted()) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "dropped_total",
		Help:      "Events dropped because the event queue was full",
	}, func() float64 { return float64(q.Dropped()) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Events waiting in the queue",
	}, func() float64 { return float64(q.Len()) })

	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "debounce",
		Name:      "accepted_total",
		Help:      "Edges accepted as presses",
	}, func() float64 { return float64(d.Accepted()) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "debounce",
		Name:      "suppressed_total",
		Help:      "Edges suppressed inside the debounce window",
	}, func() float64 { return float64(d.Suppressed()) })

	m := &Metrics{
		reg: reg,
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fsm",
			Name:      "transitions_total",
			Help:      "State transitions by source, target and event",
		}, []string{"from", "to", "event"}),
		hookFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fsm",
			Name:      "hook_failures_total",
			Help:      "Failed Enter/Do/Exit hooks",
		}, []string{"state", "hook"}),
		currentState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fsm",
			Name:      "current_state",
			Help:      "1 for the active state, 0 otherwise",
		}, []string{"state"}),
		remotePresses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "remote_presses_total",
			Help:      "Presses received over Redis before debouncing",
		}),
		states: states,
	}
	for _, s := range states {
		m.currentState.WithLabelValues(s).Set(0)
	}
	return m
}

func (m *Metrics) ObserveTransition(from, to, event string) {
	m.transitions.WithLabelValues(from, to, event).Inc()
	m.SetState(to)
}

func (m *Metrics) ObserveHookFailure(state, hook string) {
	m.hookFailures.WithLabelValues(state, hook).Inc()
}

func (m *Metrics) ObserveRemotePress() {
	m.remotePresses.Inc()
}

func (m *Metrics) SetState(name string) {
	for _, s := range m.states {
		v := 0.0
		if s == name {
			v = 1
		}
		m.currentState.WithLabelValues(s).Set(v)
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Serve exposes /metrics on addr until ctx ends.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
