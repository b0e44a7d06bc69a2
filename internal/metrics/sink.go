package metrics

// Sink receives delivery-reconciliation observations. Implementations must
// be safe for concurrent use and must never block the caller.
type Sink interface {
	// ReportProcessed counts one successfully reconciled delivery report.
	ReportProcessed()
	// ReportFailed counts one report that could not be applied.
	ReportFailed()
	// BatchSize observes the size of one incoming callback batch.
	BatchSize(n int)
	// StatusChanged counts one stored status transition, labeled by the new
	// internal status.
	StatusChanged(status string)
	// MessageSent counts one outbound send attempt, labeled by outcome.
	MessageSent(outcome string)
}
