package models

// MaxDeliveryBatchSize is the vendor's cap on reports per callback request.
const MaxDeliveryBatchSize = 20

// DeliveryReport is the vendor-shaped delivery callback for one message.
// The same shape backs all three input flavors (query string, single JSON
// object, batch array); the handler normalizes each flavor into this struct
// before any processing happens. It is never persisted as-is.
type DeliveryReport struct {
	ExternalID  string `json:"externalId"`
	EventType   string `json:"eventType"`
	EventTS     int64  `json:"eventTs"`
	DestAddr    string `json:"destAddr"`
	SrcAddr     string `json:"srcAddr"`
	Cause       string `json:"cause"`
	ErrCode     string `json:"errCode"`
	Channel     string `json:"channel"`
	NoOfFrags   int    `json:"noOfFrags"`
	Mask        string `json:"mask,omitempty"`
	DeliveredTS int64  `json:"deliveredTS,omitempty"`
}

// DeliveryReportBatch is the vendor's batch envelope.
type DeliveryReportBatch struct {
	Response []DeliveryReport `json:"response"`
}

// DeliveryResult aggregates per-item outcomes for one callback request.
// Individual failures never fail the batch; the vendor only needs an
// acknowledgement of receipt.
type DeliveryResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}
