// Package openaicompat implements the OpenAI-compatible chat completions
// wire format shared by OpenAI, Grok (xAI), Groq and Z.ai.
package openaicompat

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

// preset pins a provider name to its default endpoint and timeout.
type preset struct {
	name    string
	baseURL string
	timeout time.Duration
}

var presets = []preset{
	{"openai", "https://api.openai.com/v1/chat/completions", 30 * time.Second},
	{"grok", "https://api.x.ai/v1/chat/completions", 30 * time.Second},
	{"groq", "https://api.groq.com/openai/v1/chat/completions", 30 * time.Second},
	// Z.ai GLM models are slower, give them more headroom
	{"zai", "https://api.z.ai/api/paas/v4/chat/completions", 60 * time.Second},
}

func init() {
	for _, p := range presets {
		p := p
		agent.RegisterFactory(p.name, func(cfg agent.Config, logger *zap.Logger) agent.Agent {
			return New(p.name, p.baseURL, p.timeout, cfg, logger)
		})
	}
}

// Agent is an OpenAI-compatible chat completions client.
type Agent struct {
	provider string
	cfg      agent.Config
	url      string
	client   *http.Client
	logger   *zap.Logger
}

// New creates a client for one OpenAI-compatible provider.
// cfg.BaseURL replaces everything up to /chat/completions when set.
func New(provider, defaultURL string, timeout time.Duration, cfg agent.Config, logger *zap.Logger) *Agent {
	url := defaultURL
	if cfg.BaseURL != "" {
		url = strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"
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
		provider: provider,
		cfg:      cfg,
		url:      url,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		logger: logger.With(zap.String("provider", provider)),
	}
}

// Compile-time interface check
var _ agent.Agent = (*Agent)(nil)

func (a *Agent) Provider() string { return a.provider }
func (a *Agent) Model() string    { return a.cfg.Model }

// Chat sends a chat completions request.
func (a *Agent) Chat(ctx context.Context, messages []agent.ChatMessage) (*agent.Response, error) {
	a.logger.Debug("Sending chat request")

	req := apiRequest{
		Model:       a.cfg.Model,
		Messages:    make([]apiMessage, 0, len(messages)),
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: 0.7,
	}
	for _, m := range messages {
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
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

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
			"%s API error %d: %s", a.provider, resp.StatusCode, string(respBody),
		))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, agent.NewInvalidResponse(err)
	}

	// Empty choices degrade to an empty reply rather than an error.
	content := ""
	finishReason := "stop"
	if len(apiResp.Choices) > 0 {
		if apiResp.Choices[0].Message.Content != nil {
			content = *apiResp.Choices[0].Message.Content
		}
		if apiResp.Choices[0].FinishReason != "" {
			finishReason = apiResp.Choices[0].FinishReason
		}
	}

	usage := entity.UsageStats{}
	if apiResp.Usage != nil {
		usage = entity.UsageStats{
			PromptTokens:     apiResp.Usage.PromptTokens,
			CompletionTokens: apiResp.Usage.CompletionTokens,
			TotalTokens:      apiResp.Usage.TotalTokens,
		}
	}

	return &agent.Response{
		Content:      content,
		FinishReason: finishReason,
		Usage:        usage,
		Model:        a.cfg.Model,
		Provider:     a.provider,
	}, nil
}

// ChatStream is reserved.
func (a *Agent) ChatStream(ctx context.Context, messages []agent.ChatMessage) (<-chan agent.StreamChunk, error) {
	return nil, agent.NewUnknown("Streaming not implemented")
}

type apiRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens"`
	Temperature float64      `json:"temperature"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Choices []choice  `json:"choices"`
	Usage   *apiUsage `json:"usage"`
}

type choice struct {
	Message      choiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type choiceMessage struct {
	Content *string `json:"content"`
}

type apiUsage struct {
	PromptTokens     uint32 `json:"prompt_tokens"`
	CompletionTokens uint32 `json:"completion_tokens"`
	TotalTokens      uint32 `json:"total_tokens"`
}
