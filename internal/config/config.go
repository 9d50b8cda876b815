// Package config handles gateway configuration loading and validation.
// Config is read from a JSON5 file, then env vars overlay file values so
// secrets stay out of config.json.
package config

import (
	"sync"
)

// Config is the root configuration for the gateway.
type Config struct {
	mu sync.RWMutex

	Gateway     GatewayConfig     `json:"gateway"`
	Channels    ChannelsConfig    `json:"channels"`
	AI          AIConfig          `json:"ai"`
	Database    DatabaseConfig    `json:"database"`
	Sessions    SessionsConfig    `json:"sessions"`
	Dedup       DedupConfig       `json:"dedup"`
	Telemetry   TelemetryConfig   `json:"telemetry"`
	Maintenance MaintenanceConfig `json:"maintenance"`
}

// GatewayConfig controls the reply engine runtime.
type GatewayConfig struct {
	BusQueueDepth    int `json:"bus_queue_depth"`
	DebounceMS       int `json:"debounce_ms"`
	ShutdownGraceSec int `json:"shutdown_grace_sec"`
}

// ChannelsConfig holds per-platform channel settings.
type ChannelsConfig struct {
	WhatsApp WhatsAppConfig `json:"whatsapp"`
	Meta     MetaConfig     `json:"meta"`
	WebChat  WebChatConfig  `json:"webchat"`
}

// WhatsAppConfig configures the WhatsApp bridge connection.
type WhatsAppConfig struct {
	Enabled   bool   `json:"enabled"`
	BridgeURL string `json:"bridge_url"`
}

// MetaConfig configures the Instagram/Messenger webhook endpoint.
type MetaConfig struct {
	Enabled     bool   `json:"enabled"`
	ListenAddr  string `json:"listen_addr"`
	WebhookPath string `json:"webhook_path"`
	VerifyToken string `json:"verify_token"`
	AppSecret   string `json:"app_secret"`
}

// WebChatConfig configures the website widget endpoint.
type WebChatConfig struct {
	Enabled    bool     `json:"enabled"`
	ListenAddr string   `json:"listen_addr"`
	Path       string   `json:"path"`
	Origins    []string `json:"origins"`
}

// AIConfig configures the completion backend.
type AIConfig struct {
	BaseURL      string  `json:"base_url"`
	APIKey       string  `json:"api_key"`
	Model        string  `json:"model"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
	RateLimitRPM int     `json:"rate_limit_rpm"`
}

// DatabaseConfig selects the persistence backend.
// Mode "memory" runs without Postgres, for development and tests.
type DatabaseConfig struct {
	Mode        string `json:"mode"`
	PostgresDSN string `json:"postgres_dsn"`
}

// SessionsConfig tunes conversation memory.
type SessionsConfig struct {
	WindowTurns int `json:"window_turns"`
	IdleTTLMin  int `json:"idle_ttl_min"`
}

// DedupConfig tunes the duplicate webhook guard.
type DedupConfig struct {
	TTLMin     int `json:"ttl_min"`
	MaxEntries int `json:"max_entries"`
	SweepMin   int `json:"sweep_min"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint"`
	ServiceName string `json:"service_name"`
}

// MaintenanceConfig schedules background jobs as cron expressions.
type MaintenanceConfig struct {
	UsageRolloverCron string `json:"usage_rollover_cron"`
}
