package imports

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	pollFetchesTotal  *prometheus.CounterVec
	pollSessionsTotal *prometheus.CounterVec
	activeWatches     prometheus.Gauge
)

func initMetrics() {
	pollFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "overlay",
			Subsystem: "import_poll",
			Name:      "fetches_total",
			Help:      "Import status fetches by outcome.",
		},
		[]string{"outcome"},
	)
	pollSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "overlay",
			Subsystem: "import_poll",
			Name:      "sessions_total",
			Help:      "Finished polling sessions by how they ended.",
		},
		[]string{"result"},
	)
	activeWatches = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "overlay",
		Subsystem: "import_poll",
		Name:      "active_watches",
		Help:      "Server-side import watches currently polling.",
	})

	prometheus.MustRegister(pollFetchesTotal, pollSessionsTotal, activeWatches)
}

func recordFetch(outcome string) {
	metricsOnce.Do(initMetrics)
	pollFetchesTotal.WithLabelValues(outcome).Inc()
}

func recordSession(result string) {
	metricsOnce.Do(initMetrics)
	pollSessionsTotal.WithLabelValues(result).Inc()
}

func setActiveWatches(n int) {
	metricsOnce.Do(initMetrics)
	activeWatches.Set(float64(n))
}
