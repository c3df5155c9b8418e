package workers

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"

	"wa-gateway/observability"
)

// TelemetryWorker periodically snapshots the gateway gauges together with
// the process RSS and CPU usage, and logs the result. The snapshot is also
// kept in the monitor for the stats endpoint.
type TelemetryWorker struct {
	log      *slog.Logger
	monitor  *observability.Monitor
	interval time.Duration
	register sync.Once
}

func NewTelemetryWorker(log *slog.Logger, monitor *observability.Monitor, interval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{log: log, monitor: monitor, interval: interval}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	w.log.Info("starting telemetry worker", "interval", w.interval)

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	w.register.Do(func() {
		w.monitor.Register(selfProbe(p))
	})

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats := w.monitor.Collect()
			w.log.Info("gateway telemetry",
				"sessions_ready", stats.SessionsReady,
				"sessions_initializing", stats.SessionsInitializing,
				"notifications_queued", stats.NotificationsQueued,
				"notifications_dropped", stats.NotificationsDropped,
				"rss_mb", stats.RSSBytes/1024/1024,
				"cpu_percent", stats.CPUPercent,
				"alloc_mb", stats.AllocMemMB,
				"num_gc", stats.NumGC,
			)
		}
	}
}

// selfProbe reads process level metrics for the current snapshot. A read
// failure leaves the gauge at zero rather than failing the collection.
func selfProbe(p *process.Process) observability.Probe {
	return func(stats *observability.GatewayStats) {
		if mem, err := p.MemoryInfo(); err == nil {
			stats.RSSBytes = mem.RSS
		}
		if cpu, err := p.CPUPercent(); err == nil {
			stats.CPUPercent = cpu
		}
	}
}
