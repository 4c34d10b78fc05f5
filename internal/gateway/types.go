// Package gateway implements the WebSocket/HTTP gateway: connection
// management, message fan-out and the agent processing pipeline.
package gateway

import (
	"encoding/json"
	"time"

	"github.com/SampleBias/Open-Clanker/internal/domain/entity"
	"github.com/google/uuid"
)

// Version 网关版本号
const Version = "0.1.0"

// 客户端消息类型
const (
	ClientSubscribe   = "subscribe"
	ClientUnsubscribe = "unsubscribe"
	ClientSendMessage = "send_message"
	ClientPing        = "ping"
)

// 服务端消息类型
const (
	ServerMessageReceived = "message_received"
	ServerSubscribed      = "subscribed"
	ServerUnsubscribed    = "unsubscribed"
	ServerSendResponse    = "send_response"
	ServerHealth          = "health"
	ServerPong            = "pong"
	ServerError           = "error"
)

// ClientEnvelope 客户端消息信封，data 按 type 二次解码
type ClientEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SubscribeData 订阅通道
type SubscribeData struct {
	ChannelID   string             `json:"channel_id"`
	ChannelType entity.ChannelType `json:"channel_type"`
}

// UnsubscribeData 取消订阅
type UnsubscribeData struct {
	ChannelID string `json:"channel_id"`
}

// SendMessageData 通过网关发送消息
type SendMessageData struct {
	ChannelID   string             `json:"channel_id"`
	ChannelType entity.ChannelType `json:"channel_type"`
	Message     string             `json:"message"`
}

// PingData 保活
type PingData struct {
	Timestamp uint64 `json:"timestamp"`
}

// ServerEnvelope 服务端消息信封
type ServerEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// SubscribedData 订阅确认
type SubscribedData struct {
	ChannelID    string    `json:"channel_id"`
	ConnectionID uuid.UUID `json:"connection_id"`
}

// SendResponseData 发送结果，content 仅在有模型回复时出现
type SendResponseData struct {
	Success   bool    `json:"success"`
	MessageID *string `json:"message_id"`
	Error     *string `json:"error"`
	Content   *string `json:"content,omitempty"`
}

// HealthData 连接内健康信息
type HealthData struct {
	Status        string `json:"status"`
	UptimeSeconds uint64 `json:"uptime_seconds"`
}

// PongData 保活应答
type PongData struct {
	Timestamp uint64 `json:"timestamp"`
}

// ErrorData 错误通知
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMessageReceived wraps a channel message for broadcast.
func NewMessageReceived(msg *entity.Message) ServerEnvelope {
	return ServerEnvelope{Type: ServerMessageReceived, Data: msg}
}

// NewSubscribed confirms a subscription.
func NewSubscribed(channelID string, connectionID uuid.UUID) ServerEnvelope {
	return ServerEnvelope{Type: ServerSubscribed, Data: SubscribedData{
		ChannelID:    channelID,
		ConnectionID: connectionID,
	}}
}

// NewUnsubscribed confirms an unsubscription.
func NewUnsubscribed(channelID string) ServerEnvelope {
	return ServerEnvelope{Type: ServerUnsubscribed, Data: UnsubscribeData{ChannelID: channelID}}
}

// NewSendResponse reports the outcome of a send_message request.
func NewSendResponse(success bool, messageID, errMsg, content *string) ServerEnvelope {
	return ServerEnvelope{Type: ServerSendResponse, Data: SendResponseData{
		Success:   success,
		MessageID: messageID,
		Error:     errMsg,
		Content:   content,
	}}
}

// NewHealth builds an in-band health notification.
func NewHealth(status string, uptimeSeconds uint64) ServerEnvelope {
	return ServerEnvelope{Type: ServerHealth, Data: HealthData{
		Status:        status,
		UptimeSeconds: uptimeSeconds,
	}}
}

// NewPong echoes a ping timestamp.
func NewPong(timestamp uint64) ServerEnvelope {
	return ServerEnvelope{Type: ServerPong, Data: PongData{Timestamp: timestamp}}
}

// NewError builds an error notification.
func NewError(code, message string) ServerEnvelope {
	return ServerEnvelope{Type: ServerError, Data: ErrorData{Code: code, Message: message}}
}

// ConnectionState 单个 WebSocket 连接的状态。
// 并发访问由持有它的 State 加锁保护。
type ConnectionState struct {
	ID            uuid.UUID
	Addr          string
	ConnectedAt   time.Time
	Subscriptions map[string]entity.ChannelType
}

// NewConnectionState 创建连接状态
func NewConnectionState(addr string) *ConnectionState {
	return &ConnectionState{
		ID:            uuid.New(),
		Addr:          addr,
		ConnectedAt:   time.Now().UTC(),
		Subscriptions: make(map[string]entity.ChannelType),
	}
}

// Subscribe records a channel subscription.
func (c *ConnectionState) Subscribe(channelID string, channelType entity.ChannelType) {
	c.Subscriptions[channelID] = channelType
}

// Unsubscribe removes a channel subscription.
func (c *ConnectionState) Unsubscribe(channelID string) {
	delete(c.Subscriptions, channelID)
}

// IsSubscribed reports whether the connection watches the channel.
func (c *ConnectionState) IsSubscribed(channelID string) bool {
	_, ok := c.Subscriptions[channelID]
	return ok
}

// SubscriptionCount 订阅数量
func (c *ConnectionState) SubscriptionCount() int {
	return len(c.Subscriptions)
}

// UptimeSeconds 连接存活时长
func (c *ConnectionState) UptimeSeconds() int64 {
	return int64(time.Since(c.ConnectedAt).Seconds())
}

// HealthResponse /health 响应体
type HealthResponse struct {
	Status            string    `json:"status"`
	Version           string    `json:"version"`
	UptimeSeconds     uint64    `json:"uptime_seconds"`
	ActiveConnections int       `json:"active_connections"`
	TotalMessages     uint64    `json:"total_messages"`
	ActiveWorkers     int       `json:"active_workers"`
	MaxWorkers        int       `json:"max_workers"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewHealthResponse 创建健康检查响应
func NewHealthResponse(version string, uptimeSeconds uint64, activeConnections int, totalMessages uint64, activeWorkers, maxWorkers int) HealthResponse {
	return HealthResponse{
		Status:            "healthy",
		Version:           version,
		UptimeSeconds:     uptimeSeconds,
		ActiveConnections: activeConnections,
		TotalMessages:     totalMessages,
		ActiveWorkers:     activeWorkers,
		MaxWorkers:        maxWorkers,
		Timestamp:         time.Now().UTC(),
	}
}

// ShouldDeliver applies the per-connection subscription filter.
// Channel messages only reach connections subscribed to their channel;
// every other envelope kind passes through.
func ShouldDeliver(env ServerEnvelope, conn *ConnectionState) bool {
	if env.Type != ServerMessageReceived {
		return true
	}
	msg, ok := env.Data.(*entity.Message)
	if !ok {
		return true
	}
	return conn.IsSubscribed(msg.ChannelID)
}
