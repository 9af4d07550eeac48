package dashboard

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// resourceSnapshot is the host and process utilisation served by
// /api/resources.
type resourceSnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	CPUPercent  float64   `json:"cpu_percent"`
	MemoryUsed  uint64    `json:"memory_used"`
	MemoryTotal uint64    `json:"memory_total"`
	MemoryPct   float64   `json:"memory_percent"`
	DiskUsed    uint64    `json:"disk_used"`
	DiskTotal   uint64    `json:"disk_total"`
	DiskPct     float64   `json:"disk_percent"`
	HeapAlloc   uint64    `json:"heap_alloc"`
	Goroutines  int       `json:"goroutines"`
}

var (
	cpuPercentFn = func(ctx context.Context) ([]float64, error) {
		return cpu.PercentWithContext(ctx, 0, false)
	}
	memoryStatsFn = mem.VirtualMemoryWithContext
	diskUsageFn   = disk.UsageWithContext
)

// sampleResources collects one snapshot. Collectors that fail leave their
// fields zero.
func sampleResources(ctx context.Context) resourceSnapshot {
	snap := resourceSnapshot{
		Timestamp:  time.Now(),
		Goroutines: runtime.NumGoroutine(),
	}

	if pcts, err := cpuPercentFn(ctx); err == nil && len(pcts) > 0 {
		snap.CPUPercent = pcts[0]
	}
	if vm, err := memoryStatsFn(ctx); err == nil {
		snap.MemoryUsed = vm.Used
		snap.MemoryTotal = vm.Total
		snap.MemoryPct = vm.UsedPercent
	}
	// uploads are spooled to the temp dir, so that is the disk worth watching
	if du, err := diskUsageFn(ctx, os.TempDir()); err == nil {
		snap.DiskUsed = du.Used
		snap.DiskTotal = du.Total
		snap.DiskPct = du.UsedPercent
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	snap.HeapAlloc = ms.HeapAlloc
	return snap
}
