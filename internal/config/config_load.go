package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			BusQueueDepth:    256,
			DebounceMS:       1000,
			ShutdownGraceSec: 10,
		},
		Channels: ChannelsConfig{
			Meta: MetaConfig{
				ListenAddr:  ":8090",
				WebhookPath: "/webhook/meta",
			},
			WebChat: WebChatConfig{
				ListenAddr: ":8091",
				Path:       "/ws/chat",
			},
		},
		AI: AIConfig{
			BaseURL:      "https://api.openai.com/v1",
			Model:        "gpt-4o-mini",
			MaxTokens:    1024,
			Temperature:  0.4,
			RateLimitRPM: 60,
		},
		Database: DatabaseConfig{
			Mode: "memory",
		},
		Sessions: SessionsConfig{
			WindowTurns: 20,
			IdleTTLMin:  10,
		},
		Dedup: DedupConfig{
			TTLMin:     5,
			MaxEntries: 1000,
			SweepMin:   30,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "shopchat",
		},
		Maintenance: MaintenanceConfig{
			UsageRolloverCron: "0 3 * * *",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error; defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("SHOPCHAT_AI_API_KEY", &c.AI.APIKey)
	envStr("SHOPCHAT_AI_BASE_URL", &c.AI.BaseURL)
	envStr("SHOPCHAT_AI_MODEL", &c.AI.Model)

	envStr("SHOPCHAT_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("SHOPCHAT_MODE", &c.Database.Mode)

	envStr("SHOPCHAT_WHATSAPP_BRIDGE_URL", &c.Channels.WhatsApp.BridgeURL)
	envStr("SHOPCHAT_META_VERIFY_TOKEN", &c.Channels.Meta.VerifyToken)
	envStr("SHOPCHAT_META_APP_SECRET", &c.Channels.Meta.AppSecret)

	envStr("SHOPCHAT_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	if v := os.Getenv("SHOPCHAT_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("SHOPCHAT_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			c.Gateway.DebounceMS = ms
		}
	}

	// Auto-enable channels when credentials arrive via env.
	if c.Channels.WhatsApp.BridgeURL != "" {
		c.Channels.WhatsApp.Enabled = true
	}
	if c.Channels.Meta.VerifyToken != "" {
		c.Channels.Meta.Enabled = true
	}
	if c.Database.PostgresDSN != "" && c.Database.Mode == "memory" {
		c.Database.Mode = "postgres"
	}
}

// Save writes the config to a JSON file. Secrets loaded from env are
// written as-is only if they were present in the file to begin with, so
// callers should blank AI.APIKey and Meta.AppSecret before saving.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ExpandHome replaces a leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
