// Package monitoring collects gateway runtime metrics and serves them in
// Prometheus text format without pulling in prometheus/client_golang.
package monitoring

import (
	"sync/atomic"
	"time"
)

// Metrics 网关运行指标，全部通过 atomic 访问
type Metrics struct {
	// Message counters
	MessagesTotal   uint64
	MessagesSuccess uint64
	MessagesFailed  uint64

	// Agent counters
	AgentCallsTotal uint64
	AgentTokensUsed uint64

	// Broadcast plane
	BroadcastDropped uint64

	// Gauges
	ActiveConnections int64

	// StartTime 进程启动时间
	StartTime time.Time
}

// Monitor 指标采集器
type Monitor struct {
	metrics *Metrics
}

// NewMonitor 创建指标采集器
func NewMonitor() *Monitor {
	return &Monitor{
		metrics: &Metrics{
			StartTime: time.Now(),
		},
	}
}

// RecordMessage counts one processed message.
func (m *Monitor) RecordMessage(success bool) {
	atomic.AddUint64(&m.metrics.MessagesTotal, 1)
	if success {
		atomic.AddUint64(&m.metrics.MessagesSuccess, 1)
	} else {
		atomic.AddUint64(&m.metrics.MessagesFailed, 1)
	}
}

// RecordAgentCall counts one model round trip and its token usage.
func (m *Monitor) RecordAgentCall(tokens uint64) {
	atomic.AddUint64(&m.metrics.AgentCallsTotal, 1)
	atomic.AddUint64(&m.metrics.AgentTokensUsed, tokens)
}

// RecordBroadcastDrop counts one envelope lost to a slow subscriber.
func (m *Monitor) RecordBroadcastDrop() {
	atomic.AddUint64(&m.metrics.BroadcastDropped, 1)
}

// ConnectionOpened 连接建立
func (m *Monitor) ConnectionOpened() {
	atomic.AddInt64(&m.metrics.ActiveConnections, 1)
}

// ConnectionClosed 连接关闭
func (m *Monitor) ConnectionClosed() {
	atomic.AddInt64(&m.metrics.ActiveConnections, -1)
}

// MessagesProcessed 返回累计处理的消息数
func (m *Monitor) MessagesProcessed() uint64 {
	return atomic.LoadUint64(&m.metrics.MessagesTotal)
}

// BroadcastDrops 返回累计丢弃的广播信封数
func (m *Monitor) BroadcastDrops() uint64 {
	return atomic.LoadUint64(&m.metrics.BroadcastDropped)
}

// ActiveConnectionCount 返回当前连接数
func (m *Monitor) ActiveConnectionCount() int64 {
	return atomic.LoadInt64(&m.metrics.ActiveConnections)
}
