package system

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const notAvailable = "N/A"

// processUsage reports every process whose name contains one of names.
func (c *Collector) processUsage(ctx context.Context, names []string) []ProcessUsage {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("listing processes")
		return nil
	}

	var usages []ProcessUsage
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || !containsAny(name, names) {
			continue
		}
		usages = append(usages, describeProcess(ctx, p, name))
	}
	return usages
}

// serviceUsage resolves each service to its main PID and describes it.
// Services that are not running are reported with N/A fields.
func (c *Collector) serviceUsage(ctx context.Context, services []string) []ProcessUsage {
	usages := make([]ProcessUsage, 0, len(services))
	for _, service := range services {
		pid, err := c.servicePID(ctx, service)
		if err != nil || pid == 0 {
			c.log.Debug().Err(err).Str("service", service).Msg("service is not running")
			usages = append(usages, unavailable(service))
			continue
		}

		p, err := process.NewProcessWithContext(ctx, pid)
		if err != nil {
			usages = append(usages, unavailable(service))
			continue
		}
		usages = append(usages, describeProcess(ctx, p, service))
	}
	return usages
}

func (c *Collector) servicePID(ctx context.Context, service string) (int32, error) {
	switch runtime.GOOS {
	case "linux":
		out, err := c.run(ctx, "systemctl", "show", service, "--property=MainPID")
		if err != nil {
			return 0, err
		}
		return parseMainPID(out)
	case "darwin":
		out, err := c.run(ctx, "launchctl", "list")
		if err != nil {
			return 0, err
		}
		return parseLaunchctl(out, service)
	}
	return 0, fmt.Errorf("service lookup is not supported on %s", runtime.GOOS)
}

// parseMainPID reads `MainPID=1234` as printed by systemctl show.
func parseMainPID(out string) (int32, error) {
	_, value, ok := strings.Cut(strings.TrimSpace(out), "=")
	if !ok {
		return 0, fmt.Errorf("unexpected systemctl output %q", out)
	}
	pid, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid MainPID %q: %w", value, err)
	}
	return int32(pid), nil
}

// parseLaunchctl finds the PID column for label in `launchctl list` output.
func parseLaunchctl(out, label string) (int32, error) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[2] != label {
			continue
		}
		if fields[0] == "-" {
			return 0, nil
		}
		pid, err := strconv.ParseInt(fields[0], 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid pid %q: %w", fields[0], err)
		}
		return int32(pid), nil
	}
	return 0, fmt.Errorf("service %s not found", label)
}

func describeProcess(ctx context.Context, p *process.Process, name string) ProcessUsage {
	usage := unavailable(name)
	usage.PID = p.Pid

	if pct, err := p.CPUPercentWithContext(ctx); err == nil {
		usage.CPU = Float2string(pct, 2) + "%"
	}
	if info, err := p.MemoryInfoWithContext(ctx); err == nil {
		usage.Memory = ProperUnit(info.RSS)
	}
	if created, err := p.CreateTimeWithContext(ctx); err == nil {
		usage.Uptime = ConvertSeconds(time.Since(time.UnixMilli(created)))
	}
	if io, err := p.IOCountersWithContext(ctx); err == nil {
		usage.ReadIO = ProperUnit(io.ReadBytes)
		usage.WriteIO = ProperUnit(io.WriteBytes)
	}
	return usage
}

func unavailable(name string) ProcessUsage {
	return ProcessUsage{
		Name:    name,
		CPU:     notAvailable,
		Memory:  notAvailable,
		Uptime:  notAvailable,
		ReadIO:  notAvailable,
		WriteIO: notAvailable,
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
