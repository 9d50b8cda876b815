// Package webchat serves the embeddable website widget over WebSocket.
// Each visitor holds one connection; replies are pushed back on the same
// socket keyed by chat id.
package webchat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/nextlevelbuilder/shopchat/internal/bus"
	"github.com/nextlevelbuilder/shopchat/internal/channels"
)

// Config holds the web chat endpoint settings.
type Config struct {
	ListenAddr string   `json:"listen_addr"`
	Path       string   `json:"path"`
	Origins    []string `json:"origins,omitempty"`
}

type clientFrame struct {
	Type    string `json:"type"` // "message"
	Content string `json:"content"`
	ID      string `json:"id,omitempty"`
}

type serverFrame struct {
	Type    string `json:"type"` // "reply", "error"
	Content string `json:"content"`
}

// Channel is the web chat widget channel.
type Channel struct {
	*channels.BaseChannel
	config  Config
	server  *http.Server
	limiter *channels.WebhookRateLimiter

	mu    sync.RWMutex
	conns map[string]*websocket.Conn // chatID → conn
}

// New creates a web chat channel from config.
func New(cfg Config, msgBus *bus.MessageBus) (*Channel, error) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8091"
	}
	if cfg.Path == "" {
		cfg.Path = "/ws/chat"
	}
	return &Channel{
		BaseChannel: channels.NewBaseChannel("webchat", msgBus),
		config:      cfg,
		limiter:     channels.NewWebhookRateLimiter(),
		conns:       make(map[string]*websocket.Conn),
	}, nil
}

// Start launches the widget WebSocket server.
func (c *Channel) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(c.config.Path, func(w http.ResponseWriter, r *http.Request) {
		c.handleConnection(ctx, w, r)
	})

	c.server = &http.Server{
		Addr:              c.config.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("webchat listening", "addr", c.config.ListenAddr, "path", c.config.Path)
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("webchat server failed", "error", err)
		}
	}()

	c.SetRunning(true)
	return nil
}

// Stop closes all visitor connections and shuts the server down.
func (c *Channel) Stop(ctx context.Context) error {
	c.SetRunning(false)

	c.mu.Lock()
	for chatID, conn := range c.conns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(c.conns, chatID)
	}
	c.mu.Unlock()

	if c.server != nil {
		return c.server.Shutdown(ctx)
	}
	return nil
}

// Send pushes a reply to the visitor's open socket. Visitors who
// disconnected before the reply was ready just lose it; the widget
// re-fetches history on reconnect.
func (c *Channel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	c.mu.RLock()
	conn, ok := c.conns[msg.ChatID]
	c.mu.RUnlock()

	if !ok {
		return fmt.Errorf("webchat visitor %s not connected", msg.ChatID)
	}

	data, err := json.Marshal(serverFrame{Type: "reply", Content: msg.Content})
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

// handleConnection upgrades a widget connection and pumps inbound
// messages onto the bus. The widget key query parameter identifies the
// business endpoint.
func (c *Channel) handleConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	widgetKey := r.URL.Query().Get("key")
	if widgetKey == "" {
		http.Error(w, "missing widget key", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: c.config.Origins,
	})
	if err != nil {
		slog.Warn("webchat accept failed", "error", err)
		return
	}

	// Visitors may resume a session by passing their previous chat id.
	chatID := r.URL.Query().Get("chat")
	if chatID == "" {
		chatID = uuid.NewString()
	}

	c.mu.Lock()
	c.conns[chatID] = conn
	c.mu.Unlock()

	slog.Debug("webchat visitor connected", "chat_id", chatID, "widget_key", widgetKey)

	defer func() {
		c.mu.Lock()
		delete(c.conns, chatID)
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Type != "message" {
			continue
		}
		if frame.Content == "" {
			continue
		}
		if !c.limiter.Allow(chatID) {
			_ = c.writeError(ctx, conn, "too many messages, slow down")
			continue
		}

		c.HandleMessage(widgetKey, chatID, chatID, frame.ID, frame.Content, time.Now().Unix(), nil, nil)
	}
}

func (c *Channel) writeError(ctx context.Context, conn *websocket.Conn, text string) error {
	data, _ := json.Marshal(serverFrame{Type: "error", Content: text})
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
