package system

import "encoding/json"

// Snapshot is one push of live metrics. It is serialized as-is onto the
// telemetry channel.
type Snapshot struct {
	CPUUsage     []string          `json:"cpu_usage"`
	MemoryInfo   Usage             `json:"memory_info"`
	SwapInfo     *Usage            `json:"swap_info,omitempty"`
	LoadAverages LoadAverages      `json:"load_averages"`
	DiskInfo     *Usage            `json:"disk_info,omitempty"`
	DockerStats  []json.RawMessage `json:"docker_stats"`
	Processes    []ProcessUsage    `json:"processes,omitempty"`
	Services     []ProcessUsage    `json:"services,omitempty"`
}

// Usage is a total/used pair in bytes
type Usage struct {
	Total uint64 `json:"total"`
	Used  uint64 `json:"used"`
}

type LoadAverages struct {
	M1  float64 `json:"m1"`
	M5  float64 `json:"m5"`
	M15 float64 `json:"m15"`
}

// ProcessUsage describes one monitored process or service
type ProcessUsage struct {
	Name    string `json:"name"`
	PID     int32  `json:"pid"`
	CPU     string `json:"cpu"`
	Memory  string `json:"memory"`
	Uptime  string `json:"uptime"`
	ReadIO  string `json:"read_io"`
	WriteIO string `json:"write_io"`
}

// Overview is the static host description rendered on the monitor page.
type Overview struct {
	Hostname     string
	OS           string
	Architecture string
	Uptime       string
	CPUCores     int
	CPUBrand     string
	GPUs         []string
	Memory       string
	Storage      string
	Swap         string
	Disks        []DiskInfo
	PrivateIP    string
	PublicIP     string
}

// DiskInfo represents one mounted partition
type DiskInfo struct {
	Device     string
	Mountpoint string
	Filesystem string
	Size       string
}
