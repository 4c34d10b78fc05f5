package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Channels ChannelsConfig `mapstructure:"channels"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig 网关监听配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ChannelsConfig 通道配置，nil 表示该通道未启用
type ChannelsConfig struct {
	Telegram *TelegramConfig `mapstructure:"telegram"`
	Discord  *DiscordConfig  `mapstructure:"discord"`
}

// TelegramConfig Telegram 配置
type TelegramConfig struct {
	BotToken     string   `mapstructure:"bot_token"`
	AllowedChats []string `mapstructure:"allowed_chats"`
}

// DiscordConfig Discord 配置
type DiscordConfig struct {
	BotToken string `mapstructure:"bot_token"`
	GuildID  string `mapstructure:"guild_id"`
}

// AgentConfig 主模型配置
type AgentConfig struct {
	Provider      string              `mapstructure:"provider"`
	Model         string              `mapstructure:"model"`
	APIKeyEnv     string              `mapstructure:"api_key_env"`
	APIKey        string              `mapstructure:"api_key"`
	MaxTokens     int                 `mapstructure:"max_tokens"`
	APIBaseURL    string              `mapstructure:"api_base_url"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Fallback      *FallbackConfig     `mapstructure:"fallback"`
	Orchestration OrchestrationConfig `mapstructure:"orchestration"`
}

// WorkerConfig 子任务执行模型配置（Groq）
type WorkerConfig struct {
	Model     string `mapstructure:"model"`
	APIKeyEnv string `mapstructure:"api_key_env"`
	APIKey    string `mapstructure:"api_key"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// FallbackConfig 备用模型配置，nil 表示不启用回退
type FallbackConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	APIKeyEnv string `mapstructure:"api_key_env"`
	APIKey    string `mapstructure:"api_key"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// OrchestrationConfig 主/工作模型编排配置
type OrchestrationConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	MaxWorkers int  `mapstructure:"max_workers"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 加载配置：默认值 → config.yaml → 环境变量
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix("OPENCLAW")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.LoadEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults 设置默认配置
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 18789)

	v.SetDefault("agent.provider", "anthropic")
	v.SetDefault("agent.model", "claude-sonnet-4-20250514")
	v.SetDefault("agent.api_key_env", "OPENCLAW_ANTHROPIC_API_KEY")
	v.SetDefault("agent.max_tokens", 4096)
	v.SetDefault("agent.worker.model", "llama-3.3-70b-versatile")
	v.SetDefault("agent.worker.api_key_env", "OPENCLAW_GROQ_API_KEY")
	v.SetDefault("agent.worker.max_tokens", 4096)
	v.SetDefault("agent.orchestration.enabled", true)
	v.SetDefault("agent.orchestration.max_workers", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadEnv applies environment variable overrides on top of the loaded file.
// Token and key overrides always win over file values.
func (c *Config) LoadEnv() error {
	if c.Channels.Telegram != nil {
		if token := os.Getenv("OPENCLAW_TELEGRAM_BOT_TOKEN"); token != "" {
			c.Channels.Telegram.BotToken = token
		}
	}
	if c.Channels.Discord != nil {
		if token := os.Getenv("OPENCLAW_DISCORD_BOT_TOKEN"); token != "" {
			c.Channels.Discord.BotToken = token
		}
	}

	if c.Agent.APIKeyEnv != "" {
		if key := os.Getenv(c.Agent.APIKeyEnv); key != "" {
			c.Agent.APIKey = key
		}
	}
	if c.Agent.Worker.APIKeyEnv != "" {
		if key := os.Getenv(c.Agent.Worker.APIKeyEnv); key != "" {
			c.Agent.Worker.APIKey = key
		}
	}
	if c.Agent.Fallback != nil && c.Agent.Fallback.APIKeyEnv != "" {
		if key := os.Getenv(c.Agent.Fallback.APIKeyEnv); key != "" {
			c.Agent.Fallback.APIKey = key
		}
	}

	if host := os.Getenv("OPENCLAW_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("OPENCLAW_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid OPENCLAW_PORT: %w", err)
		}
		c.Server.Port = p
	}
	return nil
}

// Validate 校验配置，启动前调用
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d, must be between 1 and 65535", c.Server.Port)
	}

	if c.Channels.Telegram == nil && c.Channels.Discord == nil {
		return fmt.Errorf("at least one channel (telegram or discord) must be configured")
	}
	if c.Channels.Telegram != nil && c.Channels.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token cannot be empty")
	}
	if c.Channels.Discord != nil && c.Channels.Discord.BotToken == "" {
		return fmt.Errorf("discord bot token cannot be empty")
	}

	switch c.Agent.Provider {
	case "anthropic", "openai", "grok", "groq":
	default:
		return fmt.Errorf("invalid provider: %s, must be one of anthropic, openai, grok, groq", c.Agent.Provider)
	}
	if c.Agent.Model == "" {
		return fmt.Errorf("agent model cannot be empty")
	}
	if c.Agent.APIKey == "" {
		return fmt.Errorf("agent API key must be set via environment variable: %s", c.Agent.APIKeyEnv)
	}

	switch c.Log.Level {
	case "error", "warn", "info", "debug", "trace":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "pretty":
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// MaxWorkers returns the configured worker cap, falling back to 5.
func (c *Config) MaxWorkers() int {
	if c.Agent.Orchestration.MaxWorkers <= 0 {
		return 5
	}
	return c.Agent.Orchestration.MaxWorkers
}
