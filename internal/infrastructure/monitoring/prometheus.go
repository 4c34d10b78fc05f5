package monitoring

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// PrometheusHandler returns an http.Handler that serves the collected
// metrics in Prometheus text format. Mount it at "/metrics".
func (m *Monitor) PrometheusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(m.metrics.StartTime).Seconds()

		lines := []struct {
			name string
			help string
			typ  string
			val  interface{}
		}{
			// Message counters
			{"openclanker_messages_total", "Total messages processed", "counter", atomic.LoadUint64(&m.metrics.MessagesTotal)},
			{"openclanker_messages_success_total", "Total messages processed successfully", "counter", atomic.LoadUint64(&m.metrics.MessagesSuccess)},
			{"openclanker_messages_failed_total", "Total messages that failed processing", "counter", atomic.LoadUint64(&m.metrics.MessagesFailed)},

			// Agent counters
			{"openclanker_agent_calls_total", "Total LLM model calls", "counter", atomic.LoadUint64(&m.metrics.AgentCallsTotal)},
			{"openclanker_agent_tokens_used_total", "Total tokens consumed", "counter", atomic.LoadUint64(&m.metrics.AgentTokensUsed)},

			// Broadcast plane
			{"openclanker_broadcast_dropped_total", "Envelopes dropped for slow WebSocket subscribers", "counter", atomic.LoadUint64(&m.metrics.BroadcastDropped)},

			// Gauges
			{"openclanker_active_connections", "Number of active WebSocket connections", "gauge", atomic.LoadInt64(&m.metrics.ActiveConnections)},
			{"openclanker_uptime_seconds", "Process uptime in seconds", "gauge", uptime},

			// Runtime metrics
			{"openclanker_memory_alloc_bytes", "Current memory allocation in bytes", "gauge", memStats.Alloc},
			{"openclanker_memory_sys_bytes", "Total memory obtained from OS", "gauge", memStats.Sys},
			{"openclanker_goroutines", "Number of goroutines", "gauge", runtime.NumGoroutine()},
			{"openclanker_gc_pause_total_ns", "Total GC pause time in nanoseconds", "counter", memStats.PauseTotalNs},
			{"openclanker_gc_cycles_total", "Total number of completed GC cycles", "counter", memStats.NumGC},
		}

		for _, l := range lines {
			fmt.Fprintf(w, "# HELP %s %s\n", l.name, l.help)
			fmt.Fprintf(w, "# TYPE %s %s\n", l.name, l.typ)
			switch v := l.val.(type) {
			case uint64:
				fmt.Fprintf(w, "%s %d\n", l.name, v)
			case int64:
				fmt.Fprintf(w, "%s %d\n", l.name, v)
			case int:
				fmt.Fprintf(w, "%s %d\n", l.name, v)
			case float64:
				fmt.Fprintf(w, "%s %f\n", l.name, v)
			case uint32:
				fmt.Fprintf(w, "%s %d\n", l.name, v)
			}
			fmt.Fprintln(w)
		}
	})
}
