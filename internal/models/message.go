package models

// MessageStatus is the internal delivery state stored on a message.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

// IsValid reports whether s is one of the four known states.
func (s MessageStatus) IsValid() bool {
	switch s {
	case StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return true
	}
	return false
}

// Message direction constants
const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

// Channel constants
const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// Message represents a single message in a conversation. The ID is generated
// at send time and doubles as the external identifier echoed back by the
// vendor in delivery reports.
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	UserID         string        `json:"user_id"`
	Channel        string        `json:"channel"`
	Direction      string        `json:"direction"`
	Destination    string        `json:"destination"`
	Source         string        `json:"source"`
	Body           string        `json:"body"`
	TemplateID     *string       `json:"template_id,omitempty"`
	Status         MessageStatus `json:"status"`
	StatusCause    string        `json:"status_cause,omitempty"`
	Fragments      int           `json:"fragments"`
	DeliveredTS    *int64        `json:"delivered_ts,omitempty"`
	CreatedAt      int64         `json:"created_at"`
	UpdatedAt      int64         `json:"updated_at"`
}

// Conversation groups messages exchanged with a single contact on a channel.
type Conversation struct {
	ID             string  `json:"id"`
	ContactAddr    string  `json:"contact_addr"`
	ContactName    string  `json:"contact_name"`
	Channel        string  `json:"channel"`
	AssignedUserID *string `json:"assigned_user_id,omitempty"`
	LastMessageAt  int64   `json:"last_message_at"`
	CreatedAt      int64   `json:"created_at"`
}

// SendMessageRequest is the payload for the send endpoint.
type SendMessageRequest struct {
	ConversationID string  `json:"conversation_id"`
	Channel        string  `json:"channel"`
	Destination    string  `json:"destination"`
	Body           string  `json:"body"`
	TemplateID     *string `json:"template_id,omitempty"`
}
