package gateway

import (
	"sync"

	"github.com/SampleBias/Open-Clanker/internal/domain/entity"
	"github.com/SampleBias/Open-Clanker/internal/infrastructure/monitoring"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// broadcastBuffer 每个订阅者的缓冲深度
const broadcastBuffer = 1000

// Broadcaster fans server envelopes out to every live WebSocket session.
// Delivery is lossy: a subscriber that falls more than broadcastBuffer
// envelopes behind loses the oldest ones, publishers never block.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]chan ServerEnvelope
	monitor     *monitoring.Monitor
	logger      *zap.Logger
}

// NewBroadcaster 创建广播器
func NewBroadcaster(monitor *monitoring.Monitor, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uuid.UUID]chan ServerEnvelope),
		monitor:     monitor,
		logger:      logger,
	}
}

// Subscribe registers a connection and returns its delivery channel.
func (b *Broadcaster) Subscribe(id uuid.UUID) <-chan ServerEnvelope {
	ch := make(chan ServerEnvelope, broadcastBuffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	b.logger.Debug("Broadcast subscriber added", zap.String("connection_id", id.String()))
	return ch
}

// Unsubscribe removes a connection and closes its delivery channel.
func (b *Broadcaster) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	if ok {
		close(ch)
		b.logger.Debug("Broadcast subscriber removed", zap.String("connection_id", id.String()))
	}
}

// Broadcast delivers the envelope to every subscriber without blocking.
func (b *Broadcaster) Broadcast(env ServerEnvelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- env:
		default:
			b.monitor.RecordBroadcastDrop()
			b.logger.Warn("Subscriber buffer full, dropping envelope",
				zap.String("connection_id", id.String()),
				zap.String("type", env.Type),
			)
		}
	}
}

// BroadcastMessage publishes a channel message to subscribed sessions.
func (b *Broadcaster) BroadcastMessage(msg *entity.Message) {
	b.logger.Debug("Broadcasting message",
		zap.String("channel_id", msg.ChannelID),
		zap.String("message_id", msg.ID),
	)
	b.Broadcast(NewMessageReceived(msg))
}

// BroadcastError publishes an error notification to every session.
func (b *Broadcaster) BroadcastError(code, message string) {
	b.logger.Warn("Broadcasting error",
		zap.String("code", code),
		zap.String("message", message),
	)
	b.Broadcast(NewError(code, message))
}

// SubscriberCount 当前订阅者数量
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
