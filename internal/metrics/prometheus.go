package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated; a collector that
// fails to register still works, it just isn't scraped.
type PrometheusSink struct {
	reportsProcessedTotal prometheus.Counter
	reportsFailedTotal    prometheus.Counter
	batchSize             prometheus.Histogram
	statusChangesTotal    *prometheus.CounterVec
	messagesSentTotal     *prometheus.CounterVec
}

func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}

	s.reportsProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crm_delivery_reports_processed_total",
		Help: "Total number of delivery reports reconciled successfully.",
	})
	s.reportsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crm_delivery_reports_failed_total",
		Help: "Total number of delivery reports that could not be applied.",
	})
	s.batchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "crm_delivery_batch_size",
		Help:    "Number of reports per vendor callback request.",
		Buckets: []float64{1, 2, 5, 10, 20},
	})
	s.statusChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_message_status_changes_total",
		Help: "Total number of stored message status transitions.",
	}, []string{"status"})
	s.messagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_messages_sent_total",
		Help: "Total number of outbound send attempts per outcome.",
	}, []string{"outcome"})

	s.register(reg, s.reportsProcessedTotal, "crm_delivery_reports_processed_total")
	s.register(reg, s.reportsFailedTotal, "crm_delivery_reports_failed_total")
	s.register(reg, s.batchSize, "crm_delivery_batch_size")
	s.register(reg, s.statusChangesTotal, "crm_message_status_changes_total")
	s.register(reg, s.messagesSentTotal, "crm_messages_sent_total")

	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if reg == nil {
		return
	}
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

func (s *PrometheusSink) ReportProcessed() { s.reportsProcessedTotal.Inc() }
func (s *PrometheusSink) ReportFailed()    { s.reportsFailedTotal.Inc() }
func (s *PrometheusSink) BatchSize(n int)  { s.batchSize.Observe(float64(n)) }

func (s *PrometheusSink) StatusChanged(status string) {
	s.statusChangesTotal.WithLabelValues(status).Inc()
}

func (s *PrometheusSink) MessageSent(outcome string) {
	s.messagesSentTotal.WithLabelValues(outcome).Inc()
}
