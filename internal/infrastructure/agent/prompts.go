package agent

import "github.com/SampleBias/Open-Clanker/internal/domain/entity"

// DefaultSystemPrompt 无通道上下文时的系统提示词
const DefaultSystemPrompt = "You are a helpful AI assistant."

// SystemPromptFor returns a tone-adjusted system prompt for the channel.
func SystemPromptFor(channelType entity.ChannelType) string {
	switch channelType {
	case entity.ChannelTelegram:
		return "You are a helpful AI assistant for Telegram. Keep responses concise and engaging."
	case entity.ChannelDiscord:
		return "You are a helpful AI assistant for Discord. Be conversational and use Discord-friendly formatting."
	case entity.ChannelSlack:
		return "You are a helpful AI assistant for Slack. Keep responses professional and clear."
	case entity.ChannelWhatsApp:
		return "You are a helpful AI assistant for WhatsApp. Keep responses friendly and concise."
	default:
		return DefaultSystemPrompt
	}
}
