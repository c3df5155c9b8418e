// Package observability aggregates runtime gauges of the gateway for the
// telemetry worker and the stats endpoint.
package observability

import (
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// GatewayStats is one snapshot of the gateway's health.
type GatewayStats struct {
	SessionsReady        int     `json:"sessions_ready"`
	SessionsInitializing int     `json:"sessions_initializing"`
	NotificationsQueued  int     `json:"notifications_queued"`
	NotificationsDropped uint64  `json:"notifications_dropped"`
	RSSBytes             uint64  `json:"rss_bytes"`
	CPUPercent           float64 `json:"cpu_percent"`
	AllocMemMB           uint64  `json:"alloc_mem_mb"`
	NumGC                uint32  `json:"num_gc"`
	CollectedAt          time.Time `json:"collected_at"`
}

// Probe fills in the gauges one component knows about.
type Probe func(*GatewayStats)

// Monitor collects snapshots on demand and keeps the latest one for
// readers that cannot afford a fresh collection, like the HTTP handler.
type Monitor struct {
	log    *slog.Logger
	mu     sync.RWMutex
	latest GatewayStats
	probes []Probe
}

func NewMonitor(log *slog.Logger) *Monitor {
	return &Monitor{log: log}
}

// Register adds probes. Not safe to call once Collect is running.
func (m *Monitor) Register(probes ...Probe) *Monitor {
	m.probes = append(m.probes, probes...)
	return m
}

// Collect builds a fresh snapshot from the Go runtime and every
// registered probe, stores it as the latest, and returns it.
func (m *Monitor) Collect() GatewayStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := GatewayStats{
		AllocMemMB:  mem.Alloc / 1024 / 1024,
		NumGC:       mem.NumGC,
		CollectedAt: time.Now(),
	}
	for _, probe := range m.probes {
		probe(&stats)
	}

	m.mu.Lock()
	m.latest = stats
	m.mu.Unlock()
	return stats
}

// Latest returns the most recent snapshot without collecting.
func (m *Monitor) Latest() GatewayStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}
