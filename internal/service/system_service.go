package service

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// SystemStatus is the ops snapshot served alongside collector state.
type SystemStatus struct {
	UptimeSeconds   int64   `json:"uptime_seconds"`
	CPUPercent      float64 `json:"cpu_percent"`
	MemUsedPercent  float64 `json:"mem_used_percent"`
	MemUsedMB       uint64  `json:"mem_used_mb"`
	DiskUsedPercent float64 `json:"disk_used_percent"`
	Goroutines      int     `json:"goroutines"`
	HeapAllocMB     uint64  `json:"heap_alloc_mb"`
}

// SystemService reports host and process health for the ops endpoint.
type SystemService struct {
	startedAt time.Time
	dataPath  string
}

func NewSystemService(dataPath string) *SystemService {
	if dataPath == "" {
		dataPath = "/"
	}
	return &SystemService{startedAt: time.Now(), dataPath: dataPath}
}

// Status gathers best-effort metrics. Probe failures leave the field zero
// rather than failing the whole status call.
func (s *SystemService) Status(ctx context.Context) SystemStatus {
	status := SystemStatus{
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	status.HeapAllocMB = ms.HeapAlloc / 1024 / 1024

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		status.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		status.MemUsedPercent = vm.UsedPercent
		status.MemUsedMB = vm.Used / 1024 / 1024
	}
	if du, err := disk.UsageWithContext(ctx, s.dataPath); err == nil {
		status.DiskUsedPercent = du.UsedPercent
	}
	return status
}
