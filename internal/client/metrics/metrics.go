// Package metrics exposes client-side Prometheus instruments. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/client/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DirectionIn  = "in"
	DirectionOut = "out"

	ResultOK     = "ok"
	ResultFailed = "failed"
)

type Metrics struct {
	reg *prometheus.Registry

	decisions       *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	reconcileTime   prometheus.Histogram
	inflight        prometheus.Gauge
	chatFrames      *prometheus.CounterVec
	unmatches       *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "matchdeck_decisions_total",
			Help: "Committed decisions by verdict",
		}, []string{"verdict"}),
		reconciliations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "matchdeck_reconciliations_total",
			Help: "Finished reconciliations by status",
		}, []string{"status"}),
		reconcileTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "matchdeck_reconciliation_duration_seconds",
			Help:    "Latency of decision reconciliation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "matchdeck_reconciliations_inflight",
			Help: "Reconciliation requests currently in flight",
		}),
		chatFrames: f.NewCounterVec(prometheus.CounterOpts{
			Name: "matchdeck_chat_frames_total",
			Help: "Chat frames by direction",
		}, []string{"direction"}),
		unmatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "matchdeck_unmatch_total",
			Help: "Confirmed unmatch calls by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) DecisionIssued(v models.Verdict) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(v)).Inc()
}

// ReconciliationStarted returns the func to call when the request finishes.
func (m *Metrics) ReconciliationStarted() func(models.ReconcileStatus) {
	if m == nil {
		return func(models.ReconcileStatus) {}
	}
	m.inflight.Inc()
	start := time.Now()
	return func(s models.ReconcileStatus) {
		m.inflight.Dec()
		m.reconcileTime.Observe(time.Since(start).Seconds())
		m.reconciliations.WithLabelValues(string(s)).Inc()
	}
}

func (m *Metrics) ChatFrame(direction string) {
	if m == nil {
		return
	}
	m.chatFrames.WithLabelValues(direction).Inc()
}

func (m *Metrics) Unmatch(result string) {
	if m == nil {
		return
	}
	m.unmatches.WithLabelValues(result).Inc()
}
