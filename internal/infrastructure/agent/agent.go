package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/SampleBias/Open-Clanker/internal/domain/entity"
	"go.uber.org/zap"
)

// Role 对话角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage 单轮对话消息
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response 模型回复
type Response struct {
	Content      string            `json:"content"`
	FinishReason string            `json:"finish_reason"`
	Usage        entity.UsageStats `json:"usage"`
	Model        string            `json:"model"`
	Provider     string            `json:"provider"`
}

// StreamChunk 流式回复分片（接口预留）
type StreamChunk struct {
	Content string
	Done    bool
	Usage   *entity.UsageStats
}

// Agent is the provider-agnostic chat interface.
// ChatStream is reserved; every current provider returns a not-implemented error.
type Agent interface {
	Chat(ctx context.Context, messages []ChatMessage) (*Response, error)
	ChatStream(ctx context.Context, messages []ChatMessage) (<-chan StreamChunk, error)

	// Provider returns the provider identifier (e.g. "anthropic", "groq")
	Provider() string

	// Model returns the configured model identifier
	Model() string
}

// Config holds everything a provider client needs.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	MaxTokens int
	// BaseURL overrides the provider's default endpoint when non-empty.
	BaseURL string
}

// --- Agent Factory Registry ---
// Providers register themselves via init() in their own package.
// Adding a new provider = implement Agent + RegisterFactory("name", New).

// Factory creates an Agent from config.
type Factory func(cfg Config, logger *zap.Logger) Agent

var (
	factoryMu sync.RWMutex
	factories = map[string]Factory{}
)

// RegisterFactory registers an agent factory for the given provider name.
// Called from init() in each provider sub-package.
func RegisterFactory(provider string, factory Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[provider] = factory
}

// New creates an Agent using the registered factory for cfg.Provider.
// Unknown providers fall back to the placeholder agent so the gateway
// still boots with a misconfigured provider name.
func New(cfg Config, logger *zap.Logger) (Agent, error) {
	name := strings.ToLower(cfg.Provider)

	factoryMu.RLock()
	factory, ok := factories[name]
	if !ok {
		factory, ok = factories["placeholder"]
	}
	factoryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider %q and no placeholder registered", cfg.Provider)
	}
	return factory(cfg, logger), nil
}

// SupportedProviders lists the providers accepted by config validation.
func SupportedProviders() []string {
	return []string{"anthropic", "openai", "grok", "groq"}
}

// IsSupported reports whether the provider name is one of the real providers.
func IsSupported(provider string) bool {
	for _, p := range SupportedProviders() {
		if p == strings.ToLower(provider) {
			return true
		}
	}
	return false
}
