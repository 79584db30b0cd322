package scrape

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is
// valid and records nothing, so one-shot runs skip registration entirely.
type Metrics struct {
	recordsDiscovered *prometheus.CounterVec
	siteFailures      *prometheus.CounterVec
	recordsSent       prometheus.Counter
	envelopesSent     prometheus.Counter
	runsTotal         prometheus.Counter
}

// NewMetrics creates and registers the pipeline collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		recordsDiscovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobvago_records_discovered_total",
			Help: "Job records discovered, labeled by site.",
		}, []string{"site"}),
		siteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobvago_site_failures_total",
			Help: "Site discovery failures, labeled by site.",
		}, []string{"site"}),
		recordsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobvago_records_sent_total",
			Help: "Job records dispatched to the queue.",
		}),
		envelopesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobvago_envelopes_sent_total",
			Help: "Transport envelopes dispatched to the queue.",
		}),
		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobvago_runs_total",
			Help: "Completed scrape runs.",
		}),
	}
	reg.MustRegister(m.recordsDiscovered, m.siteFailures, m.recordsSent, m.envelopesSent, m.runsTotal)
	return m
}

func (m *Metrics) recordDiscovered(site string) {
	if m == nil {
		return
	}
	m.recordsDiscovered.WithLabelValues(site).Inc()
}

func (m *Metrics) siteFailed(site string) {
	if m == nil {
		return
	}
	m.siteFailures.WithLabelValues(site).Inc()
}

func (m *Metrics) dispatched(records, envelopes int) {
	if m == nil {
		return
	}
	m.recordsSent.Add(float64(records))
	m.envelopesSent.Add(float64(envelopes))
}

func (m *Metrics) runCompleted() {
	if m == nil {
		return
	}
	m.runsTotal.Inc()
}
