package gateway

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SampleBias/Open-Clanker/internal/domain/entity"
	"github.com/SampleBias/Open-Clanker/internal/infrastructure/agent"
	"github.com/SampleBias/Open-Clanker/internal/infrastructure/channels"
	"github.com/SampleBias/Open-Clanker/internal/infrastructure/monitoring"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State 网关共享状态：连接表、计数器与广播器。
// 订阅关系记录在这里，会话和广播过滤都从同一份数据读取。
type State struct {
	broadcaster *Broadcaster

	mu          sync.RWMutex
	connections map[uuid.UUID]*ConnectionState

	orchestrator *agent.Orchestrator // nil 表示未启用编排
	channels     []channels.Channel
	monitor      *monitoring.Monitor

	totalMessages atomic.Uint64
	startTime     time.Time
	serverID      uuid.UUID
	logger        *zap.Logger
}

// NewState 创建网关状态
func NewState(orch *agent.Orchestrator, chans []channels.Channel, monitor *monitoring.Monitor, logger *zap.Logger) *State {
	s := &State{
		broadcaster:  NewBroadcaster(monitor, logger),
		connections:  make(map[uuid.UUID]*ConnectionState),
		orchestrator: orch,
		channels:     chans,
		monitor:      monitor,
		startTime:    time.Now().UTC(),
		serverID:     uuid.New(),
		logger:       logger,
	}
	logger.Info("Application state created", zap.String("server_id", s.serverID.String()))
	return s
}

// Broadcaster 返回广播器
func (s *State) Broadcaster() *Broadcaster {
	return s.broadcaster
}

// Monitor 返回指标采集器
func (s *State) Monitor() *monitoring.Monitor {
	return s.monitor
}

// AddConnection registers a WebSocket connection.
func (s *State) AddConnection(conn *ConnectionState) {
	s.mu.Lock()
	s.connections[conn.ID] = conn
	total := len(s.connections)
	s.mu.Unlock()

	s.monitor.ConnectionOpened()
	s.logger.Debug("Connection added",
		zap.String("connection_id", conn.ID.String()),
		zap.Int("total_connections", total),
	)
}

// RemoveConnection drops a WebSocket connection.
func (s *State) RemoveConnection(id uuid.UUID) {
	s.mu.Lock()
	_, ok := s.connections[id]
	if ok {
		delete(s.connections, id)
	}
	total := len(s.connections)
	s.mu.Unlock()

	if ok {
		s.monitor.ConnectionClosed()
	}
	s.logger.Debug("Connection removed",
		zap.String("connection_id", id.String()),
		zap.Int("total_connections", total),
	)
}

// GetConnection returns the state for a connection, or nil.
func (s *State) GetConnection(id uuid.UUID) *ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connections[id]
}

// ConnectionCount 当前连接数
func (s *State) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

// Subscribe records a channel subscription for the connection.
func (s *State) Subscribe(id uuid.UUID, channelID string, channelType entity.ChannelType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.connections[id]
	if !ok {
		return false
	}
	conn.Subscribe(channelID, channelType)
	return true
}

// Unsubscribe removes a channel subscription for the connection.
func (s *State) Unsubscribe(id uuid.UUID, channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.connections[id]
	if !ok {
		return false
	}
	conn.Unsubscribe(channelID)
	return true
}

// IsSubscribed reports whether the connection watches the channel.
func (s *State) IsSubscribed(id uuid.UUID, channelID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conn, ok := s.connections[id]
	return ok && conn.IsSubscribed(channelID)
}

// IncrementMessageCount 累加消息计数
func (s *State) IncrementMessageCount() {
	s.totalMessages.Add(1)
}

// TotalMessages 返回累计消息数
func (s *State) TotalMessages() uint64 {
	return s.totalMessages.Load()
}

// UptimeSeconds 服务存活时长
func (s *State) UptimeSeconds() uint64 {
	return uint64(time.Since(s.startTime).Seconds())
}

// UptimeFormatted 人类可读的存活时长
func (s *State) UptimeFormatted() string {
	seconds := int64(time.Since(s.startTime).Seconds())
	return fmt.Sprintf("%dh %dm %ds", seconds/3600, (seconds%3600)/60, seconds%60)
}

// StartTime 服务启动时间
func (s *State) StartTime() time.Time {
	return s.startTime
}

// ServerID 进程唯一标识
func (s *State) ServerID() uuid.UUID {
	return s.serverID
}

// Orchestrator returns the worker orchestrator, nil when disabled.
func (s *State) Orchestrator() *agent.Orchestrator {
	return s.orchestrator
}

// Channels 返回全部已配置的通道
func (s *State) Channels() []channels.Channel {
	return s.channels
}

// ChannelFor returns the first channel matching the type, or nil.
func (s *State) ChannelFor(channelType entity.ChannelType) channels.Channel {
	for _, ch := range s.channels {
		if ch.ChannelType() == channelType {
			return ch
		}
	}
	return nil
}

// Health builds the /health response snapshot.
func (s *State) Health() HealthResponse {
	activeWorkers, maxWorkers := 0, 0
	if s.orchestrator != nil {
		activeWorkers = int(s.orchestrator.ActiveWorkers())
		maxWorkers = s.orchestrator.MaxWorkers()
	}
	return NewHealthResponse(
		Version,
		s.UptimeSeconds(),
		s.ConnectionCount(),
		s.TotalMessages(),
		activeWorkers,
		maxWorkers,
	)
}
