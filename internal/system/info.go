package system

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// Inspector gathers the static host description for the monitor page.
type Inspector struct {
	run       runner
	client    *http.Client
	ipSources []string
	ipTTL     time.Duration
	log       zerolog.Logger

	mu       sync.Mutex
	publicIP string
	ipAt     time.Time
}

// NewInspector creates an Inspector using the default public IP sources
func NewInspector(log zerolog.Logger) *Inspector {
	return &Inspector{
		run:       execRunner,
		client:    &http.Client{Timeout: 3 * time.Second},
		ipSources: publicIPSources,
		ipTTL:     10 * time.Minute,
		log:       log,
	}
}

// Overview returns general system information. Only a host lookup
// failure is an error; other fields degrade to empty values.
func (i *Inspector) Overview(ctx context.Context) (*Overview, error) {
	hostInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get host info: %w", err)
	}

	overview := &Overview{
		Hostname:     hostInfo.Hostname,
		OS:           strings.TrimSpace(Capwords(hostInfo.Platform) + " " + hostInfo.PlatformVersion),
		Architecture: hostInfo.KernelArch,
		Uptime:       ConvertSeconds(time.Duration(hostInfo.Uptime) * time.Second),
		CPUBrand:     GetCPUBrand(ctx),
		GPUs:         i.gpuModels(ctx),
		Disks:        GetPartitions(ctx),
		PrivateIP:    PrivateIP(),
		PublicIP:     i.cachedPublicIP(ctx),
	}
	if overview.Architecture == "" {
		overview.Architecture = runtime.GOARCH
	}

	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		overview.CPUCores = cores
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		overview.Memory = ProperUnit(vm.Total)
	}
	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		overview.Swap = ProperUnit(swap.Total)
	}
	if storage, err := GetDiskUsage(ctx); err == nil {
		overview.Storage = ProperUnit(storage.Total)
	}
	return overview, nil
}

// GetCPUBrand returns the distinct CPU model names joined with commas
func GetCPUBrand(ctx context.Context) string {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil || len(infos) == 0 {
		return "Unknown CPU"
	}

	var models []string
	seen := make(map[string]bool)
	for _, info := range infos {
		name := strings.TrimSpace(info.ModelName)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		models = append(models, name)
	}
	if len(models) == 0 {
		return "Unknown CPU"
	}
	return strings.Join(models, ", ")
}

// GetPartitions lists mounted physical partitions with their sizes
func GetPartitions(ctx context.Context) []DiskInfo {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil
	}

	disks := make([]DiskInfo, 0, len(partitions))
	for _, p := range partitions {
		info := DiskInfo{
			Device:     p.Device,
			Mountpoint: p.Mountpoint,
			Filesystem: p.Fstype,
			Size:       notAvailable,
		}
		if usage, err := disk.UsageWithContext(ctx, p.Mountpoint); err == nil {
			info.Size = ProperUnit(usage.Total)
		}
		disks = append(disks, info)
	}
	return disks
}
