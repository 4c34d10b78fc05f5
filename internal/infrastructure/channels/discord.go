package channels

import (
	"context"
	"sync/atomic"

	"github.com/SampleBias/Open-Clanker/internal/domain/entity"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Discord 通道适配器（gateway websocket）
type Discord struct {
	session   *discordgo.Session
	guildID   string // 空表示不限制
	connected atomic.Bool
	logger    *zap.Logger
}

// NewDiscord 创建 Discord 通道
func NewDiscord(opts Options, logger *zap.Logger) (*Discord, error) {
	session, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, NewAuthenticationFailed(err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	return &Discord{
		session: session,
		guildID: opts.GuildID,
		logger:  logger.With(zap.String("channel", "discord")),
	}, nil
}

// Compile-time interface check
var _ Channel = (*Discord)(nil)

func (d *Discord) ChannelType() entity.ChannelType {
	return entity.ChannelDiscord
}

func (d *Discord) IsConnected() bool {
	return d.connected.Load()
}

// Send acknowledges the message without delivering it.
// Outbound Discord delivery is not wired up yet; the success return keeps
// the egress loop uniform across channels. TODO: deliver via
// session.ChannelMessageSend once outbound formatting is settled.
func (d *Discord) Send(ctx context.Context, msg *entity.Message) error {
	d.logger.Debug("Sending message to Discord", zap.String("message_id", msg.ID))

	if !d.IsConnected() {
		return NewConnectionError("Discord bot is not connected")
	}

	d.logger.Info("Discord send not yet fully implemented - placeholder",
		zap.String("channel_id", msg.ChannelID),
	)
	return nil
}

// Listen opens the gateway connection and forwards user messages into
// ingress. Returns after ctx is cancelled.
func (d *Discord) Listen(ctx context.Context, ingress chan<- *entity.Message) error {
	d.logger.Info("Starting Discord listener")

	remove := d.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		msg := d.convertMessage(s, m)
		if msg == nil {
			return
		}
		select {
		case ingress <- msg:
		case <-ctx.Done():
		}
	})
	defer remove()

	if err := d.session.Open(); err != nil {
		return NewConnectionError("failed to open Discord gateway: " + err.Error())
	}
	d.connected.Store(true)
	defer d.connected.Store(false)

	<-ctx.Done()
	if err := d.session.Close(); err != nil {
		d.logger.Warn("Error closing Discord session", zap.Error(err))
	}
	d.logger.Info("Discord listener stopped")
	return nil
}

// convertMessage maps a Discord event to a gateway message.
// Bot authors, own messages, empty content and foreign guilds are dropped.
func (d *Discord) convertMessage(s *discordgo.Session, m *discordgo.MessageCreate) *entity.Message {
	if m.Author == nil || m.Author.Bot {
		return nil
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return nil
	}
	if m.Content == "" {
		return nil
	}
	if d.guildID != "" && m.GuildID != d.guildID {
		return nil
	}

	msg := entity.NewMessage(
		entity.ChannelDiscord,
		m.ChannelID,
		m.Author.ID,
		m.Content,
	)
	if ts, err := discordgo.SnowflakeTimestamp(m.ID); err == nil {
		msg.Timestamp = ts.UTC()
	}
	return msg
}
