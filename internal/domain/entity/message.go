package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChannelType identifies the messaging platform a message belongs to.
type ChannelType string

const (
	ChannelTelegram ChannelType = "telegram"
	ChannelDiscord  ChannelType = "discord"
	ChannelSlack    ChannelType = "slack"
	ChannelWhatsApp ChannelType = "whatsapp"
)

// ParseChannelType parses a channel type string, case-insensitively.
// Only channels with an adapter are recognized.
func ParseChannelType(s string) (ChannelType, bool) {
	switch strings.ToLower(s) {
	case "telegram":
		return ChannelTelegram, true
	case "discord":
		return ChannelDiscord, true
	default:
		return "", false
	}
}

func (c ChannelType) String() string {
	return string(c)
}

// Message 消息实体，在通道、网关和 WebSocket 客户端之间流转
type Message struct {
	ID          string          `json:"id"`
	ChannelType ChannelType     `json:"channel_type"`
	ChannelID   string          `json:"channel_id"`
	Sender      string          `json:"sender"`
	Text        string          `json:"text"`
	Timestamp   time.Time       `json:"timestamp"`
	Metadata    MessageMetadata `json:"metadata"`
}

// NewMessage 创建新消息（工厂方法）
func NewMessage(channelType ChannelType, channelID, sender, text string) *Message {
	return &Message{
		ID:          uuid.New().String(),
		ChannelType: channelType,
		ChannelID:   channelID,
		Sender:      sender,
		Text:        text,
		Timestamp:   time.Now().UTC(),
		Metadata:    NewMessageMetadata(),
	}
}

// NewMessageWithTimestamp creates a message carrying the platform's own timestamp.
func NewMessageWithTimestamp(channelType ChannelType, channelID, sender, text string, ts time.Time) *Message {
	m := NewMessage(channelType, channelID, sender, text)
	m.Timestamp = ts.UTC()
	return m
}

// WithAttachment appends an attachment and returns the message for chaining.
func (m *Message) WithAttachment(a Attachment) *Message {
	m.Metadata.Attachments = append(m.Metadata.Attachments, a)
	return m
}

// WithReplyTo marks the message as a reply to another message.
func (m *Message) WithReplyTo(messageID string) *Message {
	m.Metadata.ReplyTo = &messageID
	return m
}

// WithMention appends a mentioned user ID.
func (m *Message) WithMention(userID string) *Message {
	m.Metadata.Mentions = append(m.Metadata.Mentions, userID)
	return m
}

// MessageMetadata 消息元数据
type MessageMetadata struct {
	Attachments []Attachment `json:"attachments"`
	ReplyTo     *string      `json:"reply_to"`
	Mentions    []string     `json:"mentions"`
}

// NewMessageMetadata returns empty metadata with non-nil slices so the
// JSON form is always [] rather than null.
func NewMessageMetadata() MessageMetadata {
	return MessageMetadata{
		Attachments: []Attachment{},
		Mentions:    []string{},
	}
}

// Attachment 消息附件
type Attachment struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	MimeType  string `json:"mime_type"`
	SizeBytes uint64 `json:"size_bytes"`
}

// NewAttachment 创建附件
func NewAttachment(url, mimeType string, sizeBytes uint64) Attachment {
	return Attachment{
		ID:        uuid.New().String(),
		URL:       url,
		MimeType:  mimeType,
		SizeBytes: sizeBytes,
	}
}
