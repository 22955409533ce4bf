package system

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"sysmonk/internal/conf"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// Provider produces live metric snapshots.
type Provider interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Collector is the gopsutil backed Provider.
type Collector struct {
	sampleWindow time.Duration
	diskTTL      time.Duration
	docker       bool
	processes    []string
	services     []string
	run          runner
	log          zerolog.Logger

	mu     sync.Mutex
	disk   *Usage
	diskAt time.Time
}

// NewCollector creates a Collector from the monitor settings
func NewCollector(cfg conf.Monitor, log zerolog.Logger) *Collector {
	return &Collector{
		sampleWindow: cfg.SampleWindow.Duration,
		diskTTL:      cfg.DiskTTL.Duration,
		docker:       cfg.Docker,
		processes:    cfg.Processes,
		services:     cfg.Services,
		run:          execRunner,
		log:          log,
	}
}

// Snapshot samples CPU, memory, swap, load and disk usage, plus docker
// and process stats when enabled. CPU sampling blocks for the sample window.
func (c *Collector) Snapshot(ctx context.Context) (*Snapshot, error) {
	cpuUsage, err := GetCPUUsage(ctx, c.sampleWindow)
	if err != nil {
		return nil, err
	}

	memory, swap, err := GetMemoryUsage(ctx)
	if err != nil {
		return nil, err
	}

	loads, err := GetLoadAverages(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		CPUUsage:     cpuUsage,
		MemoryInfo:   *memory,
		SwapInfo:     swap,
		LoadAverages: *loads,
		DiskInfo:     c.cachedDiskUsage(ctx),
		DockerStats:  []json.RawMessage{},
	}

	if c.docker {
		snapshot.DockerStats = c.dockerStats(ctx)
	}
	if len(c.processes) > 0 {
		snapshot.Processes = c.processUsage(ctx, c.processes)
	}
	if len(c.services) > 0 {
		snapshot.Services = c.serviceUsage(ctx, c.services)
	}
	return snapshot, nil
}

// GetCPUUsage returns per-core usage percentages formatted with two decimals
func GetCPUUsage(ctx context.Context, window time.Duration) ([]string, error) {
	percents, err := cpu.PercentWithContext(ctx, window, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get CPU usage: %w", err)
	}

	usage := make([]string, len(percents))
	for i, p := range percents {
		usage[i] = Float2string(p, 2)
	}
	return usage, nil
}

// GetMemoryUsage returns memory usage and, when the host has swap, swap usage.
// Used memory is total minus available.
func GetMemoryUsage(ctx context.Context) (*Usage, *Usage, error) {
	memStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get memory info: %w", err)
	}
	memory := &Usage{Total: memStat.Total, Used: memStat.Total - memStat.Available}

	swapStat, err := mem.SwapMemoryWithContext(ctx)
	if err != nil || swapStat.Total == 0 {
		return memory, nil, nil
	}
	return memory, &Usage{Total: swapStat.Total, Used: swapStat.Used}, nil
}

// GetLoadAverages returns the 1, 5 and 15 minute load averages
func GetLoadAverages(ctx context.Context) (*LoadAverages, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get load averages: %w", err)
	}
	return &LoadAverages{M1: avg.Load1, M5: avg.Load5, M15: avg.Load15}, nil
}

// GetDiskUsage sums usage over every physical partition, counting each
// device once. It falls back to the root filesystem.
func GetDiskUsage(ctx context.Context) (*Usage, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil || len(partitions) == 0 {
		return getPathUsage(ctx, "/")
	}

	seen := make(map[string]bool)
	total := &Usage{}
	for _, p := range partitions {
		if seen[p.Device] {
			continue
		}
		seen[p.Device] = true

		stat, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		total.Total += stat.Total
		total.Used += stat.Used
	}

	if total.Total == 0 {
		return getPathUsage(ctx, "/")
	}
	return total, nil
}

func getPathUsage(ctx context.Context, path string) (*Usage, error) {
	stat, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk usage for path %s: %w", path, err)
	}
	return &Usage{Total: stat.Total, Used: stat.Used}, nil
}

// cachedDiskUsage refreshes disk totals at most once per TTL. Failures
// leave the field out of the snapshot.
func (c *Collector) cachedDiskUsage(ctx context.Context) *Usage {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disk != nil && time.Since(c.diskAt) < c.diskTTL {
		return c.disk
	}

	usage, err := GetDiskUsage(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("disk usage unavailable")
		return c.disk
	}
	c.disk, c.diskAt = usage, time.Now()
	return c.disk
}
