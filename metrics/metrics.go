// Package metrics exposes scrim counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scrim"

// Collector implements services.Metrics on top of a Prometheus registry.
type Collector struct {
	roomsMatched    prometheus.Counter
	balanceGap      prometheus.Histogram
	bpSteps         *prometheus.CounterVec
	bpFinalMaps     *prometheus.CounterVec
	matchesFinished *prometheus.CounterVec
	ratingDelta     prometheus.Histogram
}

// NewRegistry returns a registry with Go runtime and process collectors already attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		roomsMatched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_matched_total",
			Help:      "Rooms whose roster was split into two teams.",
		}),
		balanceGap: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "balance_gap_rating",
			Help:      "Absolute difference between team average ratings after balancing.",
			Buckets:   []float64{0, 5, 10, 25, 50, 100, 200, 400},
		}),
		bpSteps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bp_steps_resolved_total",
			Help:      "Resolved ban/pick steps by action.",
		}, []string{"action"}),
		bpFinalMaps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bp_final_maps_total",
			Help:      "Completed ban/pick sessions by chosen map.",
		}, []string{"map"}),
		matchesFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_finished_total",
			Help:      "Finished matches by winner (A, B or draw).",
		}, []string{"winner"}),
		ratingDelta: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rating_delta",
			Help:      "Per-player rating change applied when a match finishes.",
			Buckets:   prometheus.LinearBuckets(-60, 10, 13),
		}),
	}
}

// WatchClients exports the number of connected websocket clients.
func WatchClients(reg prometheus.Registerer, count func() int) {
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_clients",
		Help:      "Connected websocket clients across all rooms.",
	}, func() float64 { return float64(count()) })
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func (c *Collector) RoomMatched(gap float64) {
	c.roomsMatched.Inc()
	c.balanceGap.Observe(gap)
}

func (c *Collector) BPStepResolved(action string) {
	c.bpSteps.WithLabelValues(action).Inc()
}

func (c *Collector) BPCompleted(finalMap string) {
	c.bpFinalMaps.WithLabelValues(finalMap).Inc()
}

func (c *Collector) MatchFinished(winner string, ratingDeltas []int) {
	c.matchesFinished.WithLabelValues(winner).Inc()
	for _, d := range ratingDeltas {
		c.ratingDelta.Observe(float64(d))
	}
}
