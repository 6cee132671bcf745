// Package metrics provides observability for the nationship server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance and gameplay metrics.
type Collector struct {
	// Decay ticker
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Event persistence
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// Gameplay
	ActionsApplied  int64
	ActionsRejected int64
	Evolutions      int64
	Decays          int64
	Collapses       int64
	BattlesWon      int64
	BattlesLost     int64
	NationsLive     int64
	ChatbotLines    int64

	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// RecordTick records one pass of the decay ticker.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))
	storeMax(&c.EventWriteLatMax, int64(latency))

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordAction counts an engine action by outcome.
func (c *Collector) RecordAction(err error) {
	if err != nil {
		atomic.AddInt64(&c.ActionsRejected, 1)
		return
	}
	atomic.AddInt64(&c.ActionsApplied, 1)
}

// RecordEvent counts the gameplay events worth graphing. Others are ignored.
func (c *Collector) RecordEvent(eventType string, victory bool) {
	switch eventType {
	case "EVOLUTION_OCCURRED":
		atomic.AddInt64(&c.Evolutions, 1)
	case "DECAY_TRIGGERED":
		atomic.AddInt64(&c.Decays, 1)
	case "COLLAPSE_OCCURRED":
		atomic.AddInt64(&c.Collapses, 1)
	case "BATTLE_RESOLVED":
		if victory {
			atomic.AddInt64(&c.BattlesWon, 1)
		} else {
			atomic.AddInt64(&c.BattlesLost, 1)
		}
	}
}

// SetNationsLive sets the gauge of nations held in memory.
func (c *Collector) SetNationsLive(n int) {
	atomic.StoreInt64(&c.NationsLive, int64(n))
}

// RecordChatbotLine counts a partner line produced by the chatbot.
func (c *Collector) RecordChatbotLine() {
	atomic.AddInt64(&c.ChatbotLines, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	var tickAvg, eventAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      c.LastTickTime.Format(time.RFC3339),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},

		"nations": map[string]interface{}{
			"live":             atomic.LoadInt64(&c.NationsLive),
			"actions_applied":  atomic.LoadInt64(&c.ActionsApplied),
			"actions_rejected": atomic.LoadInt64(&c.ActionsRejected),
			"evolutions":       atomic.LoadInt64(&c.Evolutions),
			"decays":           atomic.LoadInt64(&c.Decays),
			"collapses":        atomic.LoadInt64(&c.Collapses),
			"battles_won":      atomic.LoadInt64(&c.BattlesWon),
			"battles_lost":     atomic.LoadInt64(&c.BattlesLost),
			"chatbot_lines":    atomic.LoadInt64(&c.ChatbotLines),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := collector.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		writeMetric(w, "nationship_tick_count", "counter", "Total decay ticker passes", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP nationship_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE nationship_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "nationship_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		writeMetric(w, "nationship_events_written", "counter", "Total events written", atomic.LoadInt64(&c.EventsWritten))
		writeMetric(w, "nationship_event_write_errors", "counter", "Total event write errors", atomic.LoadInt64(&c.EventWriteErrors))
		writeMetric(w, "nationship_ws_connections", "gauge", "Active WebSocket connections", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP nationship_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE nationship_ws_messages_total counter\n")
		fmt.Fprintf(w, "nationship_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "nationship_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		writeMetric(w, "nationship_nations_live", "gauge", "Nations held in memory", atomic.LoadInt64(&c.NationsLive))

		fmt.Fprintf(w, "# HELP nationship_actions_total Engine actions by outcome\n")
		fmt.Fprintf(w, "# TYPE nationship_actions_total counter\n")
		fmt.Fprintf(w, "nationship_actions_total{outcome=\"applied\"} %d\n", atomic.LoadInt64(&c.ActionsApplied))
		fmt.Fprintf(w, "nationship_actions_total{outcome=\"rejected\"} %d\n\n", atomic.LoadInt64(&c.ActionsRejected))

		writeMetric(w, "nationship_evolutions_total", "counter", "Stage advances", atomic.LoadInt64(&c.Evolutions))
		writeMetric(w, "nationship_decays_total", "counter", "Decay penalties applied", atomic.LoadInt64(&c.Decays))
		writeMetric(w, "nationship_collapses_total", "counter", "Nations reset by collapse", atomic.LoadInt64(&c.Collapses))

		fmt.Fprintf(w, "# HELP nationship_battles_total Battles by result\n")
		fmt.Fprintf(w, "# TYPE nationship_battles_total counter\n")
		fmt.Fprintf(w, "nationship_battles_total{result=\"won\"} %d\n", atomic.LoadInt64(&c.BattlesWon))
		fmt.Fprintf(w, "nationship_battles_total{result=\"lost\"} %d\n\n", atomic.LoadInt64(&c.BattlesLost))

		writeMetric(w, "nationship_chatbot_lines_total", "counter", "Partner lines sent by the chatbot", atomic.LoadInt64(&c.ChatbotLines))
	}
}
