// Package whatsapp connects to a WhatsApp bridge via WebSocket. The
// bridge handles the actual WhatsApp protocol; this channel just
// exchanges JSON frames over WS and reconnects with backoff.
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/shopchat/internal/bus"
	"github.com/nextlevelbuilder/shopchat/internal/channels"
)

// Config holds the WhatsApp bridge connection settings.
type Config struct {
	BridgeURL string `json:"bridge_url"`
}

// Channel is the WhatsApp bridge channel.
type Channel struct {
	*channels.BaseChannel
	conn   *websocket.Conn
	config Config
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a WhatsApp channel from config.
func New(cfg Config, msgBus *bus.MessageBus) (*Channel, error) {
	if cfg.BridgeURL == "" {
		return nil, fmt.Errorf("whatsapp bridge_url is required")
	}
	return &Channel{
		BaseChannel: channels.NewBaseChannel("whatsapp", msgBus),
		config:      cfg,
	}, nil
}

// Start connects to the bridge WebSocket and begins listening.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting whatsapp channel", "bridge_url", c.config.BridgeURL)

	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.connect(); err != nil {
		// Don't fail hard, the reconnect loop keeps trying.
		slog.Warn("initial whatsapp bridge connection failed, will retry", "error", err)
	}

	go c.listenLoop()

	c.SetRunning(true)
	return nil
}

// Stop gracefully shuts down the channel.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping whatsapp channel")

	if c.cancel != nil {
		c.cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.SetRunning(false)
	return nil
}

// Send delivers an outbound reply to the bridge.
func (c *Channel) Send(_ context.Context, msg bus.OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("whatsapp bridge not connected")
	}

	data, err := json.Marshal(map[string]any{
		"type":    "message",
		"to":      msg.ChatID,
		"content": msg.Content,
	})
	if err != nil {
		return fmt.Errorf("marshal whatsapp message: %w", err)
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	return nil
}

func (c *Channel) connect() error {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.config.BridgeURL, nil)
	if err != nil {
		return fmt.Errorf("dial whatsapp bridge %s: %w", c.config.BridgeURL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	slog.Info("whatsapp bridge connected", "url", c.config.BridgeURL)
	return nil
}

// listenLoop reads bridge frames with automatic reconnection.
func (c *Channel) listenLoop() {
	backoff := time.Second

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			slog.Info("attempting whatsapp bridge reconnect", "backoff", backoff)

			select {
			case <-c.ctx.Done():
				return
			case <-time.After(backoff):
			}

			if err := c.connect(); err != nil {
				slog.Warn("whatsapp bridge reconnect failed", "error", err)
				backoff = min(backoff*2, 30*time.Second)
				continue
			}

			backoff = time.Second
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			slog.Warn("whatsapp read error, will reconnect", "error", err)

			c.mu.Lock()
			if c.conn != nil {
				_ = c.conn.Close()
				c.conn = nil
			}
			c.mu.Unlock()
			continue
		}

		var frame map[string]any
		if err := json.Unmarshal(message, &frame); err != nil {
			slog.Warn("invalid whatsapp bridge frame", "error", err)
			continue
		}

		if frameType, _ := frame["type"].(string); frameType == "message" {
			c.handleIncomingMessage(frame)
		}
	}
}

// handleIncomingMessage processes a message frame from the bridge.
// Expected format: {"type":"message","business":"<phone number id>",
// "from":"...","chat":"...","content":"...","id":"...","timestamp":...,"media":[...]}
func (c *Channel) handleIncomingMessage(frame map[string]any) {
	senderID, ok := frame["from"].(string)
	if !ok || senderID == "" {
		return
	}

	businessRef, _ := frame["business"].(string)
	if businessRef == "" {
		slog.Warn("whatsapp message without business ref dropped", "sender_id", senderID)
		return
	}

	chatID, _ := frame["chat"].(string)
	if chatID == "" {
		chatID = senderID
	}

	content, _ := frame["content"].(string)
	messageID, _ := frame["id"].(string)

	var timestamp int64
	if ts, ok := frame["timestamp"].(float64); ok {
		timestamp = int64(ts)
	}

	var media []string
	if mediaData, ok := frame["media"].([]any); ok {
		media = make([]string, 0, len(mediaData))
		for _, m := range mediaData {
			if path, ok := m.(string); ok {
				media = append(media, path)
			}
		}
	}

	slog.Debug("whatsapp message received",
		"business_ref", businessRef,
		"sender_id", senderID,
		"preview", channels.Truncate(content, 50),
	)

	c.HandleMessage(businessRef, senderID, chatID, messageID, content, timestamp, media, nil)
}
