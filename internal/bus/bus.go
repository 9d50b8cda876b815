package bus

import "context"

// MessageBus routes messages between channels and the reply engine.
// Inbound and outbound queues are independent buffered channels so a slow
// outbound platform never blocks webhook ingestion.
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage
}

// NewMessageBus creates a message bus with the given queue depth per direction.
func NewMessageBus(depth int) *MessageBus {
	if depth <= 0 {
		depth = 256
	}
	return &MessageBus{
		inbound:  make(chan InboundMessage, depth),
		outbound: make(chan OutboundMessage, depth),
	}
}

// PublishInbound enqueues a message received from a channel.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	b.inbound <- msg
}

// ConsumeInbound blocks until an inbound message is available or ctx is done.
// The second return value is false when the context was cancelled.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg := <-b.inbound:
		return msg, true
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

// PublishOutbound enqueues a reply for channel delivery.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	b.outbound <- msg
}

// ConsumeOutbound blocks until an outbound message is available or ctx is done.
func (b *MessageBus) ConsumeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case msg := <-b.outbound:
		return msg, true
	case <-ctx.Done():
		return OutboundMessage{}, false
	}
}
