package entity

import "strings"

// UsageStats token 用量统计
type UsageStats struct {
	PromptTokens     uint32 `json:"prompt_tokens"`
	CompletionTokens uint32 `json:"completion_tokens"`
	TotalTokens      uint32 `json:"total_tokens"`
}

// NewUsageStats 创建用量统计，自动累加总数
func NewUsageStats(promptTokens, completionTokens uint32) UsageStats {
	return UsageStats{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

// CalculateCost estimates the USD cost of this usage for a provider/model pair.
// Rates are per one million tokens; unknown pairs fall back to a generic rate.
func (u UsageStats) CalculateCost(provider, model string) float64 {
	var inputRate, outputRate float64

	p := strings.ToLower(provider)
	m := strings.ToLower(model)
	switch {
	case p == "anthropic" && strings.Contains(m, "sonnet"):
		inputRate, outputRate = 3.0, 15.0
	case p == "anthropic" && strings.Contains(m, "opus"):
		inputRate, outputRate = 15.0, 75.0
	case p == "anthropic" && strings.Contains(m, "haiku"):
		inputRate, outputRate = 0.80, 4.0
	case p == "openai" && strings.Contains(m, "gpt-4"):
		inputRate, outputRate = 30.0, 60.0
	case p == "openai" && strings.Contains(m, "gpt-3.5"):
		inputRate, outputRate = 0.50, 1.50
	case p == "openai":
		inputRate, outputRate = 10.0, 30.0
	case p == "groq" && strings.Contains(m, "70b"):
		inputRate, outputRate = 0.59, 0.59
	case p == "groq" && strings.Contains(m, "8x7b"):
		inputRate, outputRate = 0.27, 0.27
	case p == "groq" && strings.Contains(m, "9b"):
		inputRate, outputRate = 0.08, 0.08
	case p == "groq":
		inputRate, outputRate = 0.59, 0.59
	default:
		inputRate, outputRate = 1.0, 2.0
	}

	promptCost := float64(u.PromptTokens) / 1_000_000.0 * inputRate
	completionCost := float64(u.CompletionTokens) / 1_000_000.0 * outputRate
	return promptCost + completionCost
}

// AgentResponse 模型回复
type AgentResponse struct {
	ID           string     `json:"id"`
	Content      string     `json:"content"`
	Model        string     `json:"model"`
	FinishReason string     `json:"finish_reason"`
	Usage        UsageStats `json:"usage"`
}
