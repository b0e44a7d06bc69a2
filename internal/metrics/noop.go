package metrics

// NoopSink discards all observations. Used when metrics are disabled and in
// tests.
type NoopSink struct{}

func NewNoopSink() *NoopSink { return &NoopSink{} }

func (*NoopSink) ReportProcessed()     {}
func (*NoopSink) ReportFailed()        {}
func (*NoopSink) BatchSize(int)        {}
func (*NoopSink) StatusChanged(string) {}
func (*NoopSink) MessageSent(string)   {}
