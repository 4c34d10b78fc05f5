package config

import (
	"testing"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 18789},
		Channels: ChannelsConfig{
			Telegram: &TelegramConfig{BotToken: "test-token"},
		},
		Agent: AgentConfig{
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-20250514",
			APIKeyEnv: "OPENCLAW_ANTHROPIC_API_KEY",
			APIKey:    "test-key",
			MaxTokens: 4096,
			Orchestration: OrchestrationConfig{
				Enabled:    true,
				MaxWorkers: 5,
			},
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// === Validate ===

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 65536} {
		cfg := validConfig()
		cfg.Server.Port = port
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should be rejected", port)
		}
	}
}

func TestValidate_NoChannel(t *testing.T) {
	cfg := validConfig()
	cfg.Channels.Telegram = nil
	cfg.Channels.Discord = nil
	if err := cfg.Validate(); err == nil {
		t.Error("config without channels should be rejected")
	}
}

func TestValidate_EmptyChannelToken(t *testing.T) {
	cfg := validConfig()
	cfg.Channels.Telegram.BotToken = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty telegram token should be rejected")
	}

	cfg = validConfig()
	cfg.Channels.Telegram = nil
	cfg.Channels.Discord = &DiscordConfig{BotToken: ""}
	if err := cfg.Validate(); err == nil {
		t.Error("empty discord token should be rejected")
	}
}

func TestValidate_InvalidProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Agent.Provider = "invalid"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown provider should be rejected")
	}
}

func TestValidate_KnownProviders(t *testing.T) {
	for _, p := range []string{"anthropic", "openai", "grok", "groq"} {
		cfg := validConfig()
		cfg.Agent.Provider = p
		if err := cfg.Validate(); err != nil {
			t.Errorf("provider %q should be accepted: %v", p, err)
		}
	}
}

func TestValidate_EmptyModelOrKey(t *testing.T) {
	cfg := validConfig()
	cfg.Agent.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty model should be rejected")
	}

	cfg = validConfig()
	cfg.Agent.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty API key should be rejected")
	}
}

func TestValidate_LogSettings(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown log level should be rejected")
	}

	cfg = validConfig()
	cfg.Log.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown log format should be rejected")
	}
}

// === Env overrides ===

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("OPENCLAW_TELEGRAM_BOT_TOKEN", "env-tg-token")
	t.Setenv("OPENCLAW_ANTHROPIC_API_KEY", "env-api-key")
	t.Setenv("OPENCLAW_HOST", "127.0.0.1")
	t.Setenv("OPENCLAW_PORT", "9000")

	cfg := validConfig()
	if err := cfg.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}

	if cfg.Channels.Telegram.BotToken != "env-tg-token" {
		t.Errorf("telegram token: got %q", cfg.Channels.Telegram.BotToken)
	}
	if cfg.Agent.APIKey != "env-api-key" {
		t.Errorf("api key: got %q", cfg.Agent.APIKey)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("server override: got %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
}

func TestLoadEnv_InvalidPort(t *testing.T) {
	t.Setenv("OPENCLAW_PORT", "not-a-number")
	cfg := validConfig()
	if err := cfg.LoadEnv(); err == nil {
		t.Error("non-numeric OPENCLAW_PORT should fail")
	}
}

func TestLoadEnv_FallbackKey(t *testing.T) {
	t.Setenv("OPENCLAW_OPENAI_API_KEY", "fb-key")
	cfg := validConfig()
	cfg.Agent.Fallback = &FallbackConfig{
		Provider:  "openai",
		Model:     "gpt-4-turbo",
		APIKeyEnv: "OPENCLAW_OPENAI_API_KEY",
	}
	if err := cfg.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if cfg.Agent.Fallback.APIKey != "fb-key" {
		t.Errorf("fallback key: got %q", cfg.Agent.Fallback.APIKey)
	}
}

// === Helpers ===

func TestAddr(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 18789}
	if got := s.Addr(); got != "0.0.0.0:18789" {
		t.Errorf("Addr: got %q", got)
	}
}

func TestMaxWorkers_Default(t *testing.T) {
	cfg := validConfig()
	cfg.Agent.Orchestration.MaxWorkers = 0
	if got := cfg.MaxWorkers(); got != 5 {
		t.Errorf("MaxWorkers default: got %d, want 5", got)
	}
	cfg.Agent.Orchestration.MaxWorkers = 3
	if got := cfg.MaxWorkers(); got != 3 {
		t.Errorf("MaxWorkers: got %d, want 3", got)
	}
}
