// Package metrics exposes the server's operational counters and gauges
// over Prometheus, the observability stack used by the constellation
// simulator example for its own propagation telemetry. This is ambient
// operational visibility, not the simulated-propagation itself — the
// Non-goals of spec.md §1 bind the simulation's fidelity, not the server's
// instrumentation of it.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the server registers. Callers hold one
// instance and pass it down to the components that need it.
type Metrics struct {
	Registry *prometheus.Registry

	startedAt time.Time

	SessionsActive      prometheus.Gauge
	VoicePacketsRouted  prometheus.Counter
	VoicePacketsDropped *prometheus.CounterVec
	PairCacheHits       prometheus.Counter
	PairCacheMisses     prometheus.Counter
	IonosphericEpoch    prometheus.Gauge
	PermissionDenials   *prometheus.CounterVec
}

// Uptime reports how long the process has been running, matching the
// teacher's uptime.go.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startedAt)
}

// New registers and returns the full metric set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry:  reg,
		startedAt: time.Now(),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "murmurhf",
			Name:      "sessions_active",
			Help:      "Number of sessions currently registered, including ones still in the handshake.",
		}),
		VoicePacketsRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "murmurhf",
			Name:      "voice_packets_routed_total",
			Help:      "Voice packets successfully forwarded to at least one receiver.",
		}),
		VoicePacketsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "murmurhf",
			Name:      "voice_packets_dropped_total",
			Help:      "Voice packets dropped per reason (currently: fading).",
		}, []string{"reason"}),
		PairCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "murmurhf",
			Name:      "pair_cache_hits_total",
			Help:      "Signal-strength pair-cache lookups served from cache.",
		}),
		PairCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "murmurhf",
			Name:      "pair_cache_misses_total",
			Help:      "Signal-strength pair-cache lookups that required computation.",
		}),
		IonosphericEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "murmurhf",
			Name:      "ionospheric_epoch",
			Help:      "Current ionospheric state epoch counter.",
		}),
		PermissionDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "murmurhf",
			Name:      "permission_denials_total",
			Help:      "PermissionDenied replies issued, by permission bit.",
		}, []string{"permission"}),
	}

	uptimeGauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "murmurhf",
		Name:      "uptime_seconds",
		Help:      "Seconds since the process started.",
	}, func() float64 { return m.Uptime().Seconds() })

	reg.MustRegister(
		m.SessionsActive,
		m.VoicePacketsRouted,
		m.VoicePacketsDropped,
		m.PairCacheHits,
		m.PairCacheMisses,
		m.IonosphericEpoch,
		m.PermissionDenials,
		uptimeGauge,
	)

	return m
}
