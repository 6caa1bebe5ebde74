package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PairsSeen tracks PairCreated notifications received from the feed
	PairsSeen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeywatch_pairs_seen_total",
			Help: "Total number of PairCreated notifications received",
		},
	)

	// DiscoveryOutcomes tracks how each notification was handled
	DiscoveryOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "honeywatch_discovery_outcomes_total",
			Help: "Discovery results per outcome",
		},
		[]string{"outcome"},
	)

	// Verdicts tracks evaluation verdicts per action and reason
	Verdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "honeywatch_verdicts_total",
			Help: "Evaluation verdicts",
		},
		[]string{"action", "reason"},
	)

	// EvaluationErrors tracks evaluation passes aborted by an error
	EvaluationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeywatch_evaluation_errors_total",
			Help: "Evaluation passes that ended with an error",
		},
	)

	// EvaluationDuration tracks the wall time of one evaluation pass
	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "honeywatch_evaluation_duration_seconds",
			Help:    "Duration of a candidate evaluation pass",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		},
	)

	// Mitigations tracks helper contract submissions per result
	Mitigations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "honeywatch_mitigations_total",
			Help: "fightHoneypot submissions by result",
		},
		[]string{"result"},
	)

	// MitigationsInFlight tracks sent transactions awaiting a receipt
	MitigationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "honeywatch_mitigations_in_flight",
			Help: "Mitigation transactions waiting for a receipt",
		},
	)

	// CandidatesPending tracks the registry size
	CandidatesPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "honeywatch_candidates_pending",
			Help: "Candidates waiting for evaluation",
		},
	)

	// BlacklistedTokens tracks the number of blacklisted tokens
	BlacklistedTokens = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "honeywatch_blacklisted_tokens",
			Help: "Tokens present in the blacklist",
		},
	)

	// FeedConnected is 1 while the PairCreated subscription is live
	FeedConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "honeywatch_feed_connected",
			Help: "Whether the PairCreated subscription is live",
		},
	)

	// FeedResubscriptions tracks failed subscription attempts
	FeedResubscriptions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeywatch_feed_resubscriptions_total",
			Help: "Failed PairCreated subscription attempts",
		},
	)
)

var (
	// DBConnectionPoolUsage tracks open connections as a share of the pool limit
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "honeywatch_db_connection_pool_usage_percent",
			Help: "Open database connections as a percentage of the pool limit",
		},
	)
)
