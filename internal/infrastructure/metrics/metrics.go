package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SettlementMetrics holds every metric of the settlement engine.
type SettlementMetrics struct {
	// Status transitions of trade transactions
	TradeTransitionsTotal *prometheus.CounterVec
	TradesCreatedTotal    prometheus.Counter

	// Rejected operations, labelled by operation and failure reason
	OperationFailuresTotal *prometheus.CounterVec
	OperationDuration      *prometheus.HistogramVec

	// Card exchange
	CardsMovedTotal      *prometheus.CounterVec
	ExchangeSkippedTotal prometheus.Counter
	BindersCreatedTotal  prometheus.Counter

	// Proposals
	ProposalStatusTotal *prometheus.CounterVec

	// Trades waiting on arrival longer than the configured threshold
	StaleTrades prometheus.Gauge
}

// NewSettlementMetrics registers the metrics on reg.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	factory := promauto.With(reg)
	return &SettlementMetrics{
		TradeTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_trade_transitions_total",
				Help: "Trade status transitions committed to storage",
			},
			[]string{"from", "to"},
		),
		TradesCreatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "settlement_trades_created_total",
				Help: "Trades created from accepted proposals",
			},
		),
		OperationFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_operation_failures_total",
				Help: "Settlement operations that returned an error",
			},
			[]string{"operation", "reason"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "settlement_operation_duration_seconds",
				Help:    "Latency of settlement operations including storage round trips",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"operation"},
		),
		CardsMovedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_cards_moved_total",
				Help: "Card quantities added to or removed from binders by the exchange",
			},
			[]string{"direction"},
		),
		ExchangeSkippedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "settlement_exchange_skipped_total",
				Help: "Donor-side removals skipped because the card was not in the binder",
			},
		),
		BindersCreatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "settlement_binders_created_total",
				Help: "Binders created by the exchange for sets the receiver did not own",
			},
		),
		ProposalStatusTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_proposal_status_total",
				Help: "Proposal status changes",
			},
			[]string{"status"},
		),
		StaleTrades: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "settlement_stale_trades",
				Help: "Trades stuck waiting for arrival or verification past the stale threshold",
			},
		),
	}
}

func (m *SettlementMetrics) RecordTransition(from, to string) {
	m.TradeTransitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *SettlementMetrics) RecordTradeCreated() {
	m.TradesCreatedTotal.Inc()
}

func (m *SettlementMetrics) RecordFailure(operation, reason string) {
	m.OperationFailuresTotal.WithLabelValues(operation, reason).Inc()
}

func (m *SettlementMetrics) ObserveDuration(operation string, seconds float64) {
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordExchange records the outcome of one completed card exchange.
func (m *SettlementMetrics) RecordExchange(added, removed, skipped, bindersCreated int) {
	m.CardsMovedTotal.WithLabelValues("added").Add(float64(added))
	m.CardsMovedTotal.WithLabelValues("removed").Add(float64(removed))
	m.ExchangeSkippedTotal.Add(float64(skipped))
	m.BindersCreatedTotal.Add(float64(bindersCreated))
}

func (m *SettlementMetrics) RecordProposalStatus(status string) {
	m.ProposalStatusTotal.WithLabelValues(status).Inc()
}

func (m *SettlementMetrics) SetStaleTrades(n int) {
	m.StaleTrades.Set(float64(n))
}
