// Package placeholder provides an offline echo agent used for development
// and as the fallback when an unknown provider name is configured.
package placeholder

import (
	"context"
	"fmt"

	"github.com/SampleBias/Open-Clanker/internal/domain/entity"
	"github.com/SampleBias/Open-Clanker/internal/infrastructure/agent"
	"go.uber.org/zap"
)

func init() {
	agent.RegisterFactory("placeholder", func(cfg agent.Config, logger *zap.Logger) agent.Agent {
		return New(cfg)
	})
}

// Agent echoes the last message back without any network calls.
type Agent struct {
	cfg agent.Config
}

// New creates a placeholder agent.
func New(cfg agent.Config) *Agent {
	return &Agent{cfg: cfg}
}

// Compile-time interface check
var _ agent.Agent = (*Agent)(nil)

func (a *Agent) Provider() string { return a.cfg.Provider }
func (a *Agent) Model() string    { return a.cfg.Model }

// Chat echoes the last message content.
func (a *Agent) Chat(ctx context.Context, messages []agent.ChatMessage) (*agent.Response, error) {
	last := "Hello!"
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}

	n := uint32(len(messages))
	return &agent.Response{
		Content:      fmt.Sprintf("Placeholder response from %s: %s", a.cfg.Provider, last),
		FinishReason: "stop",
		Usage: entity.UsageStats{
			PromptTokens:     n,
			CompletionTokens: 10,
			TotalTokens:      n + 10,
		},
		Model:    a.cfg.Model,
		Provider: a.cfg.Provider,
	}, nil
}

// ChatStream is reserved.
func (a *Agent) ChatStream(ctx context.Context, messages []agent.ChatMessage) (<-chan agent.StreamChunk, error) {
	return nil, agent.NewUnknown("Streaming not implemented for placeholder")
}
