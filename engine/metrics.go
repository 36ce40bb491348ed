package engine

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/NethermindEth/starkexec/core"
)

// MakeMetricsListener registers the engine metrics with the default
// prometheus registerer and returns a listener feeding them. Call at most
// once per process.
func MakeMetricsListener() EventListener {
	executedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engine",
		Name:      "executed_transactions_total",
	}, []string{"type"})
	revertedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engine",
		Name:      "reverted_transactions_total",
	}, []string{"type"})
	stepsHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "engine",
		Name:      "transaction_steps",
		Buckets: []float64{
			1000,
			5000,
			10000,
			50000,
			100000,
			500000,
			1000000,
			math.Inf(0),
		},
	})

	prometheus.MustRegister(executedTotal, revertedTotal, stepsHistogram)
	return &SelectiveListener{
		OnExecuteCb: func(typ core.TransactionType, steps uint64) {
			executedTotal.WithLabelValues(typ.String()).Inc()
			stepsHistogram.Observe(float64(steps))
		},
		OnRevertCb: func(typ core.TransactionType) {
			revertedTotal.WithLabelValues(typ.String()).Inc()
		},
	}
}
