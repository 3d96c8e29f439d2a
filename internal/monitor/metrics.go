package monitor

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the coordinator's Prometheus surface. The per-worker
// vectors are labelled "worker-<id>", with the id in decimal.
type Metrics struct {
	Progress        *prometheus.GaugeVec
	RaysProduced    *prometheus.GaugeVec
	RaysKilled      *prometheus.GaugeVec
	RaysQueued      *prometheus.GaugeVec
	RunawayPauses   prometheus.Counter
	QuiescenceStops prometheus.Counter
}

// NewMetrics builds and registers the coordinator's metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Progress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flexrender",
			Name:      "worker_progress",
			Help:      "Most recently reported render progress, per worker.",
		}, []string{"worker"}),
		RaysProduced: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flexrender",
			Name:      "rays_produced",
			Help:      "Most recently reported cumulative rays produced, per worker.",
		}, []string{"worker"}),
		RaysKilled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flexrender",
			Name:      "rays_killed",
			Help:      "Most recently reported cumulative rays killed, per worker.",
		}, []string{"worker"}),
		RaysQueued: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flexrender",
			Name:      "rays_queued",
			Help:      "Most recently reported queued ray count, per worker.",
		}, []string{"worker"}),
		RunawayPauses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flexrender",
			Name:      "runaway_pauses_total",
			Help:      "Total RENDER_PAUSE messages sent by the runaway monitor.",
		}),
		QuiescenceStops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flexrender",
			Name:      "quiescence_stops_total",
			Help:      "Total renders stopped by the interesting monitor.",
		}),
	}
	reg.MustRegister(m.Progress, m.RaysProduced, m.RaysKilled, m.RaysQueued, m.RunawayPauses, m.QuiescenceStops)
	return m
}
