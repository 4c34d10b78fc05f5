// Package channels implements messaging platform adapters.
// Each adapter converts between platform events and gateway messages.
package channels

import (
	"context"
	"fmt"

	"github.com/SampleBias/Open-Clanker/internal/domain/entity"
	"go.uber.org/zap"
)

// Channel is the adapter interface for all messaging platforms.
type Channel interface {
	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg *entity.Message) error

	// Listen blocks, forwarding platform messages into ingress until ctx
	// is cancelled. Sends to ingress block when the queue is full so the
	// platform's own rate limiting provides back-pressure.
	Listen(ctx context.Context, ingress chan<- *entity.Message) error

	// ChannelType returns the platform identifier
	ChannelType() entity.ChannelType

	// IsConnected reports whether the adapter has an active connection
	IsConnected() bool
}

// Options 通道创建参数
type Options struct {
	Token        string
	AllowedChats []string // telegram: 允许的 chat ID 白名单，空表示全部
	GuildID      string   // discord: 限定的服务器，空表示全部
}

// New creates a channel adapter for the given platform type.
func New(channelType entity.ChannelType, opts Options, logger *zap.Logger) (Channel, error) {
	switch channelType {
	case entity.ChannelTelegram:
		return NewTelegram(opts, logger)
	case entity.ChannelDiscord:
		return NewDiscord(opts, logger)
	default:
		return nil, NewUnsupportedChannel(fmt.Sprintf("Channel type %q is not supported", channelType))
	}
}

// SupportedChannels lists platforms with an adapter.
func SupportedChannels() []string {
	return []string{"telegram", "discord"}
}
