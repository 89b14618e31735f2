package metrics

import (
	"github.com/kinderpay/billing-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BillingMetrics interface for billing metrics
type BillingMetrics interface {
	IncAgreementCreated()
	IncAgreementTransition(status string)
	IncRecordCreated(currency string)
	IncRecordOutcome(status, currency string)
	ObserveRecordAmount(amount float64, currency string)
}

type billingMetrics struct {
	log                  *logger.Logger
	agreementsCreated    prometheus.Counter
	agreementTransitions *prometheus.CounterVec
	recordsCreated       *prometheus.CounterVec
	recordOutcomes       *prometheus.CounterVec
	recordAmounts        *prometheus.HistogramVec
}

// NewBillingMetrics creates and registers the billing metrics
func NewBillingMetrics(registry *prometheus.Registry, log *logger.Logger) BillingMetrics {
	agreementsCreated := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "billing_agreements_created_total",
			Help: "The total number of created recurring agreements",
		},
	)

	agreementTransitions := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_agreement_transitions_total",
			Help: "The total number of agreement state transitions by target state",
		},
		[]string{"status"},
	)

	recordsCreated := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_records_created_total",
			Help: "The total number of created ledger records",
		},
		[]string{"currency"},
	)

	recordOutcomes := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_record_outcomes_total",
			Help: "The total number of settled ledger records by status",
		},
		[]string{"status", "currency"},
	)

	recordAmounts := promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_record_amounts",
			Help:    "Ledger record amounts distribution",
			Buckets: prometheus.ExponentialBuckets(100, 10, 4), // 100, 1000, 10000, 100000
		},
		[]string{"currency"},
	)

	return &billingMetrics{
		log:                  log,
		agreementsCreated:    agreementsCreated,
		agreementTransitions: agreementTransitions,
		recordsCreated:       recordsCreated,
		recordOutcomes:       recordOutcomes,
		recordAmounts:        recordAmounts,
	}
}

// IncAgreementCreated increments the created agreements counter
func (m *billingMetrics) IncAgreementCreated() {
	m.agreementsCreated.Inc()
}

// IncAgreementTransition increments the transition counter for the
// target state
func (m *billingMetrics) IncAgreementTransition(status string) {
	m.agreementTransitions.WithLabelValues(status).Inc()
}

// IncRecordCreated increments the created records counter
func (m *billingMetrics) IncRecordCreated(currency string) {
	m.recordsCreated.WithLabelValues(currency).Inc()
}

// IncRecordOutcome increments the settled records counter
func (m *billingMetrics) IncRecordOutcome(status, currency string) {
	m.recordOutcomes.WithLabelValues(status, currency).Inc()
}

// ObserveRecordAmount records a ledger record amount
func (m *billingMetrics) ObserveRecordAmount(amount float64, currency string) {
	m.recordAmounts.WithLabelValues(currency).Observe(amount)
}
