package evaluator

import "github.com/prometheus/client_golang/prometheus"

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmeval",
			Subsystem: "evaluator",
			Name:      "generations_total",
			Help:      "Generate calls by result (ok, error, dropped)",
		},
		[]string{"result"},
	)

	generatedTokens = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "llmeval",
			Subsystem: "evaluator",
			Name:      "generated_tokens",
			Help:      "Tokens produced per successful generation",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 10),
		},
	)

	tokensPerSecond = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "llmeval",
			Subsystem: "evaluator",
			Name:      "tokens_per_second",
			Help:      "Throughput of the last successful generation",
		},
		[]string{"model"},
	)

	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmeval",
			Subsystem: "evaluator",
			Name:      "loads_total",
			Help:      "Model loads by result (ok, error, stale)",
		},
		[]string{"result"},
	)

	loadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "llmeval",
			Subsystem: "evaluator",
			Name:      "load_duration_seconds",
			Help:      "Duration of model loads including download",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		},
	)
)

func init() {
	prometheus.MustRegister(generationsTotal, generatedTokens, tokensPerSecond, loadsTotal, loadDuration)
}
