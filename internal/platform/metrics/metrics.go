// Package metrics provides observability for the simulation server.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers engine and transport counters.
type Collector struct {
	// Clock metrics
	FrameCount      int64
	FrameLatencySum int64 // nanoseconds
	FrameLatencyMax int64
	DaysSimulated   int64
	LastFrameTime   time.Time

	// Engine metrics
	WeeksClosed       int64
	EventsFired       int64
	ActionsDispatched int64
	ActionErrors      int64

	// Persistence metrics
	SnapshotWrites int64
	SnapshotErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesOut       int64

	StartTime time.Time
	mu        sync.RWMutex
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{StartTime: time.Now()}
}

// RecordFrame records one host frame driving the clock.
func (c *Collector) RecordFrame(latency time.Duration, daysAdvanced int) {
	atomic.AddInt64(&c.FrameCount, 1)
	atomic.AddInt64(&c.FrameLatencySum, int64(latency))
	atomic.AddInt64(&c.DaysSimulated, int64(daysAdvanced))

	// Max update is non-atomic but acceptable for metrics.
	if int64(latency) > atomic.LoadInt64(&c.FrameLatencyMax) {
		atomic.StoreInt64(&c.FrameLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastFrameTime = time.Now()
	c.mu.Unlock()
}

// RecordWeekClosed counts one weekly recompute.
func (c *Collector) RecordWeekClosed() {
	atomic.AddInt64(&c.WeeksClosed, 1)
}

// RecordEventFired counts one fired catalog event.
func (c *Collector) RecordEventFired() {
	atomic.AddInt64(&c.EventsFired, 1)
}

// RecordAction counts one dispatched action and whether it was rejected.
func (c *Collector) RecordAction(err error) {
	atomic.AddInt64(&c.ActionsDispatched, 1)
	if err != nil {
		atomic.AddInt64(&c.ActionErrors, 1)
	}
}

// RecordSnapshot counts one snapshot write.
func (c *Collector) RecordSnapshot(err error) {
	atomic.AddInt64(&c.SnapshotWrites, 1)
	if err != nil {
		atomic.AddInt64(&c.SnapshotErrors, 1)
	}
}

// RecordWSConnection tracks observer connects (+1) and disconnects (-1).
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage counts one broadcast message.
func (c *Collector) RecordWSMessage() {
	atomic.AddInt64(&c.WSMessagesOut, 1)
}

type snapshot struct {
	UptimeSeconds       float64 `json:"uptime_seconds"`
	FrameCount          int64   `json:"frame_count"`
	FrameLatencyAvgUS   float64 `json:"frame_latency_avg_us"`
	FrameLatencyMaxUS   float64 `json:"frame_latency_max_us"`
	DaysSimulated       int64   `json:"days_simulated"`
	WeeksClosed         int64   `json:"weeks_closed"`
	EventsFired         int64   `json:"events_fired"`
	ActionsDispatched   int64   `json:"actions_dispatched"`
	ActionErrors        int64   `json:"action_errors"`
	SnapshotWrites      int64   `json:"snapshot_writes"`
	SnapshotErrors      int64   `json:"snapshot_errors"`
	WSConnectionsActive int64   `json:"ws_connections_active"`
	WSMessagesOut       int64   `json:"ws_messages_out"`
}

// Handler serves the collector as JSON.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		frames := atomic.LoadInt64(&c.FrameCount)
		avg := 0.0
		if frames > 0 {
			avg = float64(atomic.LoadInt64(&c.FrameLatencySum)) / float64(frames) / 1e3
		}
		out := snapshot{
			UptimeSeconds:       time.Since(c.StartTime).Seconds(),
			FrameCount:          frames,
			FrameLatencyAvgUS:   avg,
			FrameLatencyMaxUS:   float64(atomic.LoadInt64(&c.FrameLatencyMax)) / 1e3,
			DaysSimulated:       atomic.LoadInt64(&c.DaysSimulated),
			WeeksClosed:         atomic.LoadInt64(&c.WeeksClosed),
			EventsFired:         atomic.LoadInt64(&c.EventsFired),
			ActionsDispatched:   atomic.LoadInt64(&c.ActionsDispatched),
			ActionErrors:        atomic.LoadInt64(&c.ActionErrors),
			SnapshotWrites:      atomic.LoadInt64(&c.SnapshotWrites),
			SnapshotErrors:      atomic.LoadInt64(&c.SnapshotErrors),
			WSConnectionsActive: atomic.LoadInt64(&c.WSConnectionsActive),
			WSMessagesOut:       atomic.LoadInt64(&c.WSMessagesOut),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}
