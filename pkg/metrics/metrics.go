package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dealroom"

// Metrics groups the counters exported by the deal room services. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	dealsCreated     prometheus.Counter
	bids             *prometheus.CounterVec
	agreements       *prometheus.CounterVec
	finalizeFailures *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	jobSuccess       *prometheus.CounterVec
	jobFailure       *prometheus.CounterVec
}

// New registers the deal room metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		dealsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deals_created_total",
			Help:      "Deal rooms opened.",
		}),
		bids: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_total",
			Help:      "Bids recorded, by resulting status.",
		}, []string{"status"}),
		agreements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agreements_total",
			Help:      "Deals reaching Agreed, by path.",
		}, []string{"path"}),
		finalizeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalize_failures_total",
			Help:      "Transaction finalization failures, by stage.",
		}, []string{"stage"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled jobs in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		jobSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_success_total",
			Help:      "Successful scheduled job executions.",
		}, []string{"job"}),
		jobFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_failure_total",
			Help:      "Failed scheduled job executions.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.dealsCreated, m.bids, m.agreements, m.finalizeFailures, m.jobDuration, m.jobSuccess, m.jobFailure)
	return m
}

// IncDealsCreated counts a newly opened deal room.
func (m *Metrics) IncDealsCreated() {
	if m == nil {
		return
	}
	m.dealsCreated.Inc()
}

// IncBid counts a recorded bid by its status.
func (m *Metrics) IncBid(status string) {
	if m == nil {
		return
	}
	m.bids.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncAgreement counts an agreement reached through path ("bid" or "buy_now").
func (m *Metrics) IncAgreement(path string) {
	if m == nil {
		return
	}
	m.agreements.WithLabelValues(normalizeLabel(path)).Inc()
}

// IncFinalizeFailure counts a finalization failure at stage ("store" or "ledger").
func (m *Metrics) IncFinalizeFailure(stage string) {
	if m == nil {
		return
	}
	m.finalizeFailures.WithLabelValues(normalizeLabel(stage)).Inc()
}

// ObserveJob records one execution of a scheduled job.
func (m *Metrics) ObserveJob(job string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	job = normalizeLabel(job)
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
	if err != nil {
		m.jobFailure.WithLabelValues(job).Inc()
		return
	}
	m.jobSuccess.WithLabelValues(job).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
