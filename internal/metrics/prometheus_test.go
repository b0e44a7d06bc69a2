package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusSinkCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)

	sink.ReportProcessed()
	sink.ReportProcessed()
	sink.ReportFailed()
	sink.BatchSize(3)
	sink.StatusChanged("delivered")
	sink.StatusChanged("delivered")
	sink.StatusChanged("failed")
	sink.MessageSent("sent")

	if got := testutil.ToFloat64(sink.reportsProcessedTotal); got != 2 {
		t.Errorf("processed total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(sink.reportsFailedTotal); got != 1 {
		t.Errorf("failed total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.statusChangesTotal.WithLabelValues("delivered")); got != 2 {
		t.Errorf("delivered transitions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(sink.messagesSentTotal.WithLabelValues("sent")); got != 1 {
		t.Errorf("sent total = %v, want 1", got)
	}
}

func TestPrometheusSinkNilRegistry(t *testing.T) {
	// Unregistered collectors still count; they just aren't scraped.
	sink := NewPrometheusSink(nil)
	sink.ReportProcessed()
	if got := testutil.ToFloat64(sink.reportsProcessedTotal); got != 1 {
		t.Errorf("processed total = %v, want 1", got)
	}
}

func TestNoopSinkIsSafe(t *testing.T) {
	var sink Sink = NewNoopSink()
	sink.ReportProcessed()
	sink.ReportFailed()
	sink.BatchSize(5)
	sink.StatusChanged("delivered")
	sink.MessageSent("failed")
}
