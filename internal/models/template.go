package models

// Template is a reusable message body with {{placeholder}} variables,
// used for bulk sends.
type Template struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Channel   string `json:"channel"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// BulkRecipient is one target of a bulk send, with its template variables.
type BulkRecipient struct {
	Destination string            `json:"destination"`
	Variables   map[string]string `json:"variables,omitempty"`
}

// BulkSendRequest asks for a template to be rendered and sent to each
// recipient. Per-recipient failures do not abort the run.
type BulkSendRequest struct {
	TemplateID string          `json:"template_id"`
	Channel    string          `json:"channel"`
	Recipients []BulkRecipient `json:"recipients"`
}

// BulkSendResult mirrors DeliveryResult's partial-failure bookkeeping.
type BulkSendResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}
