package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	_ "github.com/shirou/gopsutil"
	"github.com/shirou/gopsutil/process"
)

// HealthMonitor samples the server's own process at a fixed interval and
// keeps the latest snapshot available for the health endpoint.
type HealthMonitor struct {
	mu       sync.RWMutex
	log      *slog.Logger
	interval time.Duration
	snapshot map[string]any
}

func NewHealthMonitor(log *slog.Logger, interval time.Duration) *HealthMonitor {
	return &HealthMonitor{
		log:      log,
		interval: interval,
		snapshot: map[string]any{"status": "starting"},
	}
}

func (w *HealthMonitor) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health sampling")
			return nil
		case <-ticker.C:
			w.sample(proc)
		}
	}
}

func (w *HealthMonitor) sample(proc *process.Process) {
	cpu, err := proc.CPUPercent()
	if err != nil {
		w.log.Error("Error while reading process cpu usage", "err", err)
		return
	}
	ram, err := proc.MemoryPercent()
	if err != nil {
		w.log.Error("Error while reading process ram usage", "err", err)
		return
	}

	w.mu.Lock()
	w.snapshot = map[string]any{
		"status":      "ok",
		"cpu_percent": cpu,
		"ram_percent": ram,
		"goroutines":  runtime.NumGoroutine(),
		"sampled_at":  time.Now().UTC().Format(time.RFC3339),
	}
	w.mu.Unlock()
}

// Snapshot returns the latest sample. Safe for concurrent use.
func (w *HealthMonitor) Snapshot() map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]any, len(w.snapshot))
	for k, v := range w.snapshot {
		out[k] = v
	}
	return out
}
