// Package channels provides the channel abstraction layer for
// multi-platform messaging. Channels connect external platforms
// (WhatsApp, Instagram, Messenger, web chat) to the reply engine via
// the message bus.
package channels

import (
	"context"

	"github.com/nextlevelbuilder/shopchat/internal/bus"
)

// Channel defines the interface that all channel implementations must satisfy.
type Channel interface {
	// Name returns the channel identifier (e.g., "whatsapp", "instagram").
	Name() string

	// Start begins listening for messages. Should be non-blocking after setup.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop(ctx context.Context) error

	// Send delivers an outbound message to the channel.
	Send(ctx context.Context, msg bus.OutboundMessage) error

	// IsRunning returns whether the channel is actively processing messages.
	IsRunning() bool
}

// BaseChannel provides shared functionality for channel implementations.
// Implementations should embed this struct.
type BaseChannel struct {
	name    string
	bus     *bus.MessageBus
	running bool
}

// NewBaseChannel creates a new BaseChannel.
func NewBaseChannel(name string, msgBus *bus.MessageBus) *BaseChannel {
	return &BaseChannel{name: name, bus: msgBus}
}

// Name returns the channel name.
func (c *BaseChannel) Name() string { return c.name }

// IsRunning returns whether the channel is running.
func (c *BaseChannel) IsRunning() bool { return c.running }

// SetRunning updates the running state.
func (c *BaseChannel) SetRunning(running bool) { c.running = running }

// Bus returns the message bus reference.
func (c *BaseChannel) Bus() *bus.MessageBus { return c.bus }

// HandleMessage creates an InboundMessage and publishes it to the bus.
// This is the standard way for channels to forward received messages.
// businessRef identifies the business endpoint the message arrived on
// (phone number id, page id, widget key).
func (c *BaseChannel) HandleMessage(businessRef, senderID, chatID, messageID, content string, timestamp int64, media []string, metadata map[string]string) {
	c.bus.PublishInbound(bus.InboundMessage{
		Channel:     c.name,
		BusinessRef: businessRef,
		SenderID:    senderID,
		ChatID:      chatID,
		MessageID:   messageID,
		Content:     content,
		Media:       media,
		Timestamp:   timestamp,
		Metadata:    metadata,
	})
}

// Truncate shortens a string to maxLen, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
