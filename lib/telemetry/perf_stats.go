package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const perfSampleInterval = 30 * time.Second

// perfGauges holds the process health instruments: cpu load, heap usage and
// goroutine count. Long browser automation runs leak both when a session is
// mishandled, so these are worth watching.
type perfGauges struct {
	cpuPercent metric.Float64Gauge
	heapMB     metric.Int64Gauge
	liveHeap   metric.Int64Gauge
	goroutines metric.Int64Gauge
}

func newPerfGauges() perfGauges {
	meter := otel.Meter("process.perf")
	g := perfGauges{}
	g.cpuPercent, _ = meter.Float64Gauge("process.cpu_percent")
	g.heapMB, _ = meter.Int64Gauge("process.heap_mb")
	g.liveHeap, _ = meter.Int64Gauge("process.live_heap_objects")
	g.goroutines, _ = meter.Int64Gauge("process.goroutines")
	return g
}

func (g perfGauges) sample(ctx context.Context) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// cpu.Percent blocks for the measurement window
	usage, err := cpu.Percent(time.Minute, false)
	if err != nil {
		slog.Warn("cpu usage sample failed", "err", err)
	} else {
		g.cpuPercent.Record(ctx, usage[0])
	}

	g.heapMB.Record(ctx, int64(memStats.Alloc/1_000_000))
	g.liveHeap.Record(ctx, int64(memStats.Mallocs)-int64(memStats.Frees))
	g.goroutines.Record(ctx, int64(runtime.NumGoroutine()))
}

// InstrumentPerfStats samples process health gauges every 30 seconds until
// the context is cancelled.
func InstrumentPerfStats(ctx context.Context) {
	gauges := newPerfGauges()
	go func() {
		ticker := time.NewTicker(perfSampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				gauges.sample(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}
