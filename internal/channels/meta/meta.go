// Package meta serves Instagram and Messenger through the Meta Graph
// API. One webhook endpoint receives events for both platforms; the
// entry object type decides which channel name an event is routed under.
package meta

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/nextlevelbuilder/shopchat/internal/bus"
	"github.com/nextlevelbuilder/shopchat/internal/channels"
)

// Channel names events are published under.
const (
	ChannelInstagram = "instagram"
	ChannelMessenger = "messenger"
)

// Config holds the Meta webhook and Graph API settings.
type Config struct {
	ListenAddr  string `json:"listen_addr"`
	WebhookPath string `json:"webhook_path"`
	VerifyToken string `json:"verify_token"`
	AppSecret   string `json:"app_secret"`
	GraphURL    string `json:"graph_url,omitempty"` // override for tests
}

// Channel receives Meta webhook events and sends replies via the Graph
// API. It registers under both instagram and messenger names.
type Channel struct {
	*channels.BaseChannel
	config  Config
	server  *http.Server
	client  *http.Client
	limiter *channels.WebhookRateLimiter
}

// New creates a Meta channel from config.
func New(cfg Config, msgBus *bus.MessageBus) (*Channel, error) {
	if cfg.VerifyToken == "" {
		return nil, fmt.Errorf("meta verify_token is required")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8090"
	}
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = "/webhook/meta"
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = "https://graph.facebook.com/v19.0"
	}
	return &Channel{
		BaseChannel: channels.NewBaseChannel("meta", msgBus),
		config:      cfg,
		client:      &http.Client{Timeout: 15 * time.Second},
		limiter:     channels.NewWebhookRateLimiter(),
	}, nil
}

// Start launches the webhook HTTP server.
func (c *Channel) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(c.config.WebhookPath, c.handleWebhook)

	c.server = &http.Server{
		Addr:              c.config.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("meta webhook listening", "addr", c.config.ListenAddr, "path", c.config.WebhookPath)
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("meta webhook server failed", "error", err)
		}
	}()

	c.SetRunning(true)
	return nil
}

// Stop shuts the webhook server down.
func (c *Channel) Stop(ctx context.Context) error {
	c.SetRunning(false)
	if c.server != nil {
		return c.server.Shutdown(ctx)
	}
	return nil
}

// Send delivers a reply via the Graph API. The page access token is
// supplied per message in Metadata["access_token"] since each business
// owns its own pages.
func (c *Channel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	token := msg.Metadata["access_token"]
	if token == "" {
		return fmt.Errorf("meta send: missing access_token metadata for chat %s", msg.ChatID)
	}

	body, err := json.Marshal(map[string]any{
		"recipient":      map[string]string{"id": msg.ChatID},
		"message":        map[string]string{"text": msg.Content},
		"messaging_type": "RESPONSE",
	})
	if err != nil {
		return fmt.Errorf("marshal meta send: %w", err)
	}

	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", c.config.GraphURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("meta send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("meta send: status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}

// handleWebhook serves both the GET verification handshake and POST
// event deliveries.
func (c *Channel) handleWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		c.handleVerification(w, r)
	case http.MethodPost:
		c.handleEvents(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (c *Channel) handleVerification(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == c.config.VerifyToken {
		_, _ = w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	http.Error(w, "verification failed", http.StatusForbidden)
}

type webhookEnvelope struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string `json:"id"`
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Timestamp int64 `json:"timestamp"`
			Message   struct {
				MID         string `json:"mid"`
				Text        string `json:"text"`
				IsEcho      bool   `json:"is_echo"`
				Attachments []struct {
					Type    string `json:"type"`
					Payload struct {
						URL string `json:"url"`
					} `json:"payload"`
				} `json:"attachments"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

func (c *Channel) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}

	if c.config.AppSecret != "" && !c.verifySignature(r.Header.Get("X-Hub-Signature-256"), body) {
		slog.Warn("meta webhook signature mismatch")
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	// Meta retries deliveries that don't get a fast 200, so ack first
	// and process after.
	w.WriteHeader(http.StatusOK)

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		slog.Warn("meta webhook unparsable", "error", err)
		return
	}

	channelName := ChannelMessenger
	if env.Object == "instagram" {
		channelName = ChannelInstagram
	}

	for _, entry := range env.Entry {
		for _, ev := range entry.Messaging {
			if ev.Message.IsEcho || ev.Sender.ID == "" {
				continue
			}
			if !c.limiter.Allow(channelName + ":" + ev.Sender.ID) {
				slog.Warn("meta sender rate limited", "sender_id", ev.Sender.ID)
				continue
			}

			// Attachments arrive as CDN URLs; the media pipeline works
			// on local files, so fetch each one first.
			var media []string
			for _, att := range ev.Message.Attachments {
				if att.Payload.URL == "" {
					continue
				}
				local, err := c.fetchAttachment(r.Context(), att.Payload.URL)
				if err != nil {
					slog.Warn("meta attachment fetch failed", "sender_id", ev.Sender.ID, "error", err)
					continue
				}
				media = append(media, local)
			}

			c.Bus().PublishInbound(bus.InboundMessage{
				Channel:     channelName,
				BusinessRef: entry.ID,
				SenderID:    ev.Sender.ID,
				ChatID:      ev.Sender.ID,
				MessageID:   ev.Message.MID,
				Content:     ev.Message.Text,
				Media:       media,
				Timestamp:   ev.Timestamp / 1000, // Meta reports milliseconds
			})
		}
	}
}

const maxAttachmentBytes = 20 << 20

// fetchAttachment downloads one attachment to a temp file, keeping the
// URL's extension so image detection keeps working downstream.
func (c *Channel) fetchAttachment(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("attachment fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("attachment fetch: status %d", resp.StatusCode)
	}

	ext := ".jpg"
	if u, err := url.Parse(rawURL); err == nil {
		if e := path.Ext(u.Path); e != "" {
			ext = e
		}
	}
	f, err := os.CreateTemp("", "meta-att-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, io.LimitReader(resp.Body, maxAttachmentBytes)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (c *Channel) verifySignature(header string, body []byte) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.config.AppSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(expected))
}
