package anthropic

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/SampleBias/Open-Clanker/internal/domain/entity"
	"github.com/SampleBias/Open-Clanker/internal/infrastructure/agent"
	"go.uber.org/zap"
)

func init() {
	agent.RegisterFactory("anthropic", func(cfg agent.Config, logger *zap.Logger) agent.Agent {
		return New(cfg, logger)
	})
}

const defaultAPIURL = "https://api.anthropic.com/v1/messages"

// Agent is the Anthropic Messages API client.
type Agent struct {
	cfg    agent.Config
	url    string
	client *http.Client
	logger *zap.Logger
}

// New creates an Anthropic agent.
func New(cfg agent.Config, logger *zap.Logger) *Agent {
	url := defaultAPIURL
	if cfg.BaseURL != "" {
		url = strings.TrimRight(cfg.BaseURL, "/") + "/v1/messages"
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 15 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
	}

	return &Agent{
		cfg: cfg,
		url: url,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		logger: logger.With(zap.String("provider", "anthropic")),
	}
}

// Compile-time interface check
var _ agent.Agent = (*Agent)(nil)

func (a *Agent) Provider() string { return "anthropic" }
func (a *Agent) Model() string    { return a.cfg.Model }

// Chat sends a Messages API request. System messages are not part of the
// messages array on this API, so the system prompt rides a dedicated field.
func (a *Agent) Chat(ctx context.Context, messages []agent.ChatMessage) (*agent.Response, error) {
	a.logger.Debug("Sending chat request to Anthropic")

	req := apiRequest{
		Model:     a.cfg.Model,
		MaxTokens: a.cfg.MaxTokens,
		System:    agent.DefaultSystemPrompt,
		Messages:  make([]apiMessage, 0, len(messages)),
	}
	for _, m := range messages {
		if m.Role == agent.RoleSystem {
			req.System = m.Content
			continue
		}
		req.Messages = append(req.Messages, apiMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, agent.NewSerializationError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return nil, agent.NewRequestFailed(err)
	}
	httpReq.Header.Set("x-api-key", a.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("content-type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, agent.NewRequestFailed(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, agent.NewHTTPError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, agent.NewProviderError(fmt.Sprintf(
			"Anthropic API error %d: %s", resp.StatusCode, string(respBody),
		))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, agent.NewInvalidResponse(err)
	}
	if len(apiResp.Content) == 0 {
		return nil, agent.NewInvalidResponse(fmt.Errorf("empty content blocks"))
	}

	finishReason := apiResp.StopReason
	if finishReason == "" {
		finishReason = "stop"
	}

	return &agent.Response{
		Content:      apiResp.Content[0].Text,
		FinishReason: finishReason,
		Usage:        entity.NewUsageStats(apiResp.Usage.InputTokens, apiResp.Usage.OutputTokens),
		Model:        a.cfg.Model,
		Provider:     "anthropic",
	}, nil
}

// ChatStream is reserved.
func (a *Agent) ChatStream(ctx context.Context, messages []agent.ChatMessage) (<-chan agent.StreamChunk, error) {
	return nil, agent.NewUnknown("Streaming not implemented")
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      apiUsage       `json:"usage"`
}

type contentBlock struct {
	Text string `json:"text"`
}

type apiUsage struct {
	InputTokens  uint32 `json:"input_tokens"`
	OutputTokens uint32 `json:"output_tokens"`
}
