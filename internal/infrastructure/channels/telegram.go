package channels

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/SampleBias/Open-Clanker/internal/domain/entity"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// telegramMaxMessageLen is the Telegram Bot API text limit.
const telegramMaxMessageLen = 4096

// Telegram 通道适配器（长轮询）
type Telegram struct {
	bot       *tgbotapi.BotAPI
	allowed   map[string]struct{} // 空表示不限制
	connected atomic.Bool
	logger    *zap.Logger
}

// NewTelegram 创建 Telegram 通道
func NewTelegram(opts Options, logger *zap.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(opts.Token)
	if err != nil {
		return nil, NewAuthenticationFailed(err)
	}

	logger.Info("Telegram bot authorized",
		zap.String("username", bot.Self.UserName),
	)

	var allowed map[string]struct{}
	if len(opts.AllowedChats) > 0 {
		allowed = make(map[string]struct{}, len(opts.AllowedChats))
		for _, id := range opts.AllowedChats {
			allowed[id] = struct{}{}
		}
	}

	return &Telegram{
		bot:     bot,
		allowed: allowed,
		logger:  logger.With(zap.String("channel", "telegram")),
	}, nil
}

// Compile-time interface check
var _ Channel = (*Telegram)(nil)

func (t *Telegram) ChannelType() entity.ChannelType {
	return entity.ChannelTelegram
}

func (t *Telegram) IsConnected() bool {
	return t.connected.Load()
}

// Send delivers a message to the chat in msg.ChannelID.
func (t *Telegram) Send(ctx context.Context, msg *entity.Message) error {
	t.logger.Debug("Sending message to Telegram", zap.String("message_id", msg.ID))

	if !t.IsConnected() {
		return NewConnectionError("Telegram bot is not connected")
	}
	if len(msg.Text) > telegramMaxMessageLen {
		return NewMessageTooLong(len(msg.Text), telegramMaxMessageLen)
	}

	chatID, err := strconv.ParseInt(msg.ChannelID, 10, 64)
	if err != nil {
		return NewInvalidConfig(fmt.Sprintf("Invalid chat ID: %s", msg.ChannelID))
	}

	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, msg.Text)); err != nil {
		return NewSendFailed(err)
	}
	t.logger.Debug("Message sent successfully")
	return nil
}

// Listen polls for updates and forwards text messages into ingress.
// Returns after ctx is cancelled.
func (t *Telegram) Listen(ctx context.Context, ingress chan<- *entity.Message) error {
	t.logger.Info("Starting Telegram listener")
	t.connected.Store(true)
	defer t.connected.Store(false)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			t.logger.Info("Telegram listener stopped")
			return nil
		case update := <-updates:
			msg := t.convertUpdate(update)
			if msg == nil {
				continue
			}
			select {
			case ingress <- msg:
			case <-ctx.Done():
				t.bot.StopReceivingUpdates()
				return nil
			}
		}
	}
}

// convertUpdate maps a Telegram update to a gateway message.
// Non-text updates and chats outside the allowlist are dropped.
func (t *Telegram) convertUpdate(update tgbotapi.Update) *entity.Message {
	if update.Message == nil || update.Message.Text == "" {
		return nil
	}

	chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
	if t.allowed != nil {
		if _, ok := t.allowed[chatID]; !ok {
			t.logger.Debug("Dropping message from non-allowed chat", zap.String("chat_id", chatID))
			return nil
		}
	}

	sender := "unknown"
	if update.Message.From != nil {
		sender = strconv.FormatInt(update.Message.From.ID, 10)
	}

	return entity.NewMessageWithTimestamp(
		entity.ChannelTelegram,
		chatID,
		sender,
		update.Message.Text,
		update.Message.Time(),
	)
}
