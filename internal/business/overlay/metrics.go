package overlay

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	aggregationsTotal prometheus.Counter
	aggregatedGroups  prometheus.Histogram
	suggestionsInput  prometheus.Counter
)

func initMetrics() {
	aggregationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "overlay",
		Subsystem: "suggestions",
		Name:      "aggregations_total",
		Help:      "Number of suggestion reconciliations served.",
	})
	suggestionsInput = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "overlay",
		Subsystem: "suggestions",
		Name:      "input_total",
		Help:      "Raw suggestions fed into reconciliation.",
	})
	aggregatedGroups = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "overlay",
		Subsystem: "suggestions",
		Name:      "aggregated_groups",
		Help:      "Groups produced per reconciliation.",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
	})

	prometheus.MustRegister(aggregationsTotal, suggestionsInput, aggregatedGroups)
}

func recordAggregation(inputs, groups int) {
	metricsOnce.Do(initMetrics)

	aggregationsTotal.Inc()
	suggestionsInput.Add(float64(inputs))
	aggregatedGroups.Observe(float64(groups))
}
