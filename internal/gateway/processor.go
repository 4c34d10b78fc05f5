package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SampleBias/Open-Clanker/internal/domain/entity"
	"github.com/SampleBias/Open-Clanker/internal/infrastructure/agent"
	"github.com/SampleBias/Open-Clanker/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

// Processor turns an incoming message into an assistant reply.
// With an orchestrator the master model may delegate subtasks to workers
// and synthesize their results; otherwise the message goes straight to
// the primary agent.
type Processor struct {
	master   agent.Agent
	fallback agent.Agent // nil 表示未配置回退
	orch     *agent.Orchestrator
	monitor  *monitoring.Monitor
	logger   *zap.Logger
}

// NewProcessor 创建消息处理器
func NewProcessor(master, fallback agent.Agent, orch *agent.Orchestrator, monitor *monitoring.Monitor, logger *zap.Logger) *Processor {
	return &Processor{
		master:   master,
		fallback: fallback,
		orch:     orch,
		monitor:  monitor,
		logger:   logger,
	}
}

// Process runs the incoming message through the agent pipeline.
// The reply inherits channel type and channel ID, sender is "assistant".
func (p *Processor) Process(ctx context.Context, incoming *entity.Message) (*entity.Message, error) {
	if incoming.Text == "" {
		return nil, errors.New("Message text cannot be empty")
	}

	p.logger.Info("Processing message",
		zap.String("sender", incoming.Sender),
		zap.String("channel_type", string(incoming.ChannelType)),
		zap.Int("chars", len(incoming.Text)),
	)

	var (
		content string
		err     error
	)
	if p.orch != nil {
		content, err = p.orchestrated(ctx, incoming.Text)
	} else {
		content, err = p.direct(ctx, incoming.Text)
	}
	if err != nil {
		p.logger.Error("Agent error", zap.Error(err))
		return nil, err
	}

	return entity.NewMessage(
		incoming.ChannelType,
		incoming.ChannelID,
		"assistant",
		content,
	), nil
}

// direct sends the text to the primary agent as a single user message.
func (p *Processor) direct(ctx context.Context, text string) (string, error) {
	resp, err := p.chatWithFallback(ctx, []agent.ChatMessage{
		{Role: agent.RoleUser, Content: text},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// orchestrated runs the master/worker flow: the master either answers
// directly or delegates, in which case worker results are fed back for a
// synthesis pass.
func (p *Processor) orchestrated(ctx context.Context, text string) (string, error) {
	messages := []agent.ChatMessage{
		{Role: agent.RoleSystem, Content: agent.MasterSystemPrompt},
		{Role: agent.RoleUser, Content: text},
	}

	resp, err := p.chatWithFallback(ctx, messages)
	if err != nil {
		return "", err
	}

	tasks := agent.ParseDelegation(resp.Content)
	if len(tasks) == 0 {
		return resp.Content, nil
	}

	p.logger.Info("Master delegated tasks", zap.Int("count", len(tasks)))
	results := p.orch.Delegate(ctx, tasks)
	if len(results) == 0 {
		// Permit acquisition was aborted; the raw master reply is the
		// best answer still available.
		return resp.Content, nil
	}

	synthesis := append(messages,
		agent.ChatMessage{Role: agent.RoleAssistant, Content: resp.Content},
		agent.ChatMessage{Role: agent.RoleUser, Content: buildSynthesisPrompt(results)},
	)
	synthResp, err := p.chatWithFallback(ctx, synthesis)
	if err != nil {
		return "", err
	}
	return synthResp.Content, nil
}

// chatWithFallback tries the primary agent once, then the fallback agent
// once if one is configured. A failing fallback is final.
func (p *Processor) chatWithFallback(ctx context.Context, messages []agent.ChatMessage) (*agent.Response, error) {
	resp, err := p.master.Chat(ctx, messages)
	if err == nil {
		p.monitor.RecordAgentCall(uint64(resp.Usage.TotalTokens))
		return resp, nil
	}
	if p.fallback == nil {
		return nil, err
	}

	p.logger.Warn("Primary agent failed, trying fallback",
		zap.String("primary", p.master.Provider()),
		zap.String("fallback", p.fallback.Provider()),
		zap.Error(err),
	)
	resp, fbErr := p.fallback.Chat(ctx, messages)
	if fbErr != nil {
		return nil, fbErr
	}
	p.monitor.RecordAgentCall(uint64(resp.Usage.TotalTokens))
	return resp, nil
}

// buildSynthesisPrompt formats worker results for the final master pass.
func buildSynthesisPrompt(results []agent.WorkerResult) string {
	var b strings.Builder
	b.WriteString("Worker_Clanker results:\n\n")
	for _, r := range results {
		fmt.Fprintf(&b, "[%s] Task: %s\nResult: %s\n\n", r.Identity, r.Task, r.Content)
	}
	b.WriteString("Synthesize these results into a coherent response for the user.")
	return b.String()
}
