package bus

// InboundMessage represents a message received from a channel (WhatsApp, Instagram, etc.)
type InboundMessage struct {
	Channel     string            `json:"channel"`
	BusinessRef string            `json:"business_ref"` // phone number id / page id / widget domain
	SenderID    string            `json:"sender_id"`
	ChatID      string            `json:"chat_id"`
	MessageID   string            `json:"message_id,omitempty"` // platform message id, used for dedup when present
	Content     string            `json:"content"`
	Media       []string          `json:"media,omitempty"`
	Timestamp   int64             `json:"timestamp,omitempty"` // unix seconds as reported by the platform
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// OutboundMessage represents a reply to be delivered to a channel.
type OutboundMessage struct {
	Channel  string            `json:"channel"`
	ChatID   string            `json:"chat_id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"` // channel-specific metadata (e.g. token ref)
}

// MessageHandler handles an inbound message from a specific channel.
type MessageHandler func(InboundMessage) error
