package system

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sysmonk/internal/conf"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner answers commands from a table keyed by the joined command line.
func fakeRunner(outputs map[string]string) (runner, *[]string) {
	var calls []string
	return func(_ context.Context, name string, args ...string) (string, error) {
		line := strings.Join(append([]string{name}, args...), " ")
		calls = append(calls, line)
		out, ok := outputs[line]
		if !ok {
			return "", errors.New("command not found")
		}
		return out, nil
	}, &calls
}

func TestProperUnit(t *testing.T) {
	tests := map[uint64]string{
		0:                     "0.00 B",
		512:                   "512.00 B",
		1024:                  "1.00 KB",
		1536:                  "1.50 KB",
		10 * 1 << 20:          "10.00 MB",
		8 << 30:               "8.00 GB",
		1<<40 + 1<<39:         "1.50 TB",
		(1 << 30) - (1 << 10): "1024.00 MB",
	}
	for in, want := range tests {
		assert.Equal(t, want, ProperUnit(in), "bytes %d", in)
	}
}

func TestConvertSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 seconds"},
		{time.Second, "1 second"},
		{90 * time.Second, "1 minute and 30 seconds"},
		{2*time.Hour + 5*time.Minute + 3*time.Second, "2 hours and 5 minutes"},
		{49*time.Hour + 30*time.Minute, "2 days and 1 hour"},
		{24 * time.Hour, "1 day"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ConvertSeconds(tt.in))
	}
}

func TestCapwords(t *testing.T) {
	assert.Equal(t, "Ubuntu Linux", Capwords("ubuntu linux"))
	assert.Equal(t, "", Capwords(""))
}

func TestDockerStats(t *testing.T) {
	log := zerolog.Nop()

	t.Run("no containers", func(t *testing.T) {
		run, calls := fakeRunner(map[string]string{"docker ps -q": ""})
		c := &Collector{run: run, log: log}
		stats := c.dockerStats(context.Background())
		assert.NotNil(t, stats)
		assert.Empty(t, stats)
		assert.Equal(t, []string{"docker ps -q"}, *calls)
	})

	t.Run("running containers", func(t *testing.T) {
		run, _ := fakeRunner(map[string]string{
			"docker ps -q": "abc\ndef",
			"docker stats --no-stream --format {{json .}}": `{"Name":"web","CPUPerc":"0.10%"}` + "\n" +
				"not json\n" +
				`{"Name":"db","CPUPerc":"1.00%"}`,
		})
		c := &Collector{run: run, log: log}
		stats := c.dockerStats(context.Background())
		require.Len(t, stats, 2)
		assert.JSONEq(t, `{"Name":"web","CPUPerc":"0.10%"}`, string(stats[0]))
	})

	t.Run("docker missing", func(t *testing.T) {
		run, _ := fakeRunner(nil)
		c := &Collector{run: run, log: log}
		assert.Empty(t, c.dockerStats(context.Background()))
	})
}

func TestParseServicePID(t *testing.T) {
	pid, err := parseMainPID("MainPID=1234\n")
	require.NoError(t, err)
	assert.Equal(t, int32(1234), pid)

	pid, err = parseMainPID("MainPID=0")
	require.NoError(t, err)
	assert.Zero(t, pid)

	_, err = parseMainPID("garbage")
	assert.Error(t, err)

	out := "PID\tStatus\tLabel\n312\t0\tcom.apple.Finder\n-\t0\tcom.example.idle\n"
	pid, err = parseLaunchctl(out, "com.apple.Finder")
	require.NoError(t, err)
	assert.Equal(t, int32(312), pid)

	pid, err = parseLaunchctl(out, "com.example.idle")
	require.NoError(t, err)
	assert.Zero(t, pid)

	_, err = parseLaunchctl(out, "missing")
	assert.Error(t, err)
}

func TestServiceUsageUnavailable(t *testing.T) {
	run, _ := fakeRunner(nil)
	c := &Collector{run: run, log: zerolog.Nop()}
	usages := c.serviceUsage(context.Background(), []string{"ghost"})
	require.Len(t, usages, 1)
	assert.Equal(t, "ghost", usages[0].Name)
	assert.Equal(t, "N/A", usages[0].CPU)
}

func TestParseGPU(t *testing.T) {
	lspci := "00:02.0 VGA compatible controller: Intel Corporation UHD Graphics 620 (rev 07)\n" +
		"00:14.0 USB controller: Intel Corporation Sunrise Point-LP USB 3.0\n" +
		"01:00.0 3D controller: NVIDIA Corporation GP108M [GeForce MX150] (rev a1)\n"
	assert.Equal(t, []string{
		"Intel Corporation UHD Graphics 620 (rev 07)",
		"NVIDIA Corporation GP108M [GeForce MX150] (rev a1)",
	}, parseLspci(lspci))

	profiler := `{"SPDisplaysDataType":[{"sppci_model":"Apple M2"},{"_name":"x"}]}`
	assert.Equal(t, []string{"Apple M2"}, parseSystemProfiler(profiler))
	assert.Nil(t, parseSystemProfiler("nope"))
}

func TestPublicIP(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>rate limited</html>")
	}))
	defer bad.Close()
	jsonSource := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"origin": "203.0.113.7"}`)
	}))
	defer jsonSource.Close()

	i := NewInspector(zerolog.Nop())
	i.ipSources = []string{bad.URL, jsonSource.URL}

	assert.Equal(t, "203.0.113.7", i.cachedPublicIP(context.Background()))

	jsonSource.Close()
	assert.Equal(t, "203.0.113.7", i.cachedPublicIP(context.Background()), "cached value survives")
}

func TestCollectorSnapshot(t *testing.T) {
	cfg := conf.Default().Monitor
	cfg.SampleWindow = conf.Duration{Duration: 50 * time.Millisecond}
	cfg.Docker = false

	c := NewCollector(cfg, zerolog.Nop())
	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, snap.CPUUsage)
	for _, v := range snap.CPUUsage {
		assert.Regexp(t, `^\d+\.\d{2}$`, v)
	}
	assert.NotZero(t, snap.MemoryInfo.Total)
	assert.LessOrEqual(t, snap.MemoryInfo.Used, snap.MemoryInfo.Total)

	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, key := range []string{"cpu_usage", "memory_info", "load_averages", "docker_stats"} {
		assert.Contains(t, doc, key)
	}
	assert.Equal(t, []any{}, doc["docker_stats"])
	assert.NotContains(t, doc, "processes")
}

func TestSnapshotOmitsSwap(t *testing.T) {
	raw, err := json.Marshal(Snapshot{CPUUsage: []string{"1.00"}, DockerStats: []json.RawMessage{}})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "swap_info")

	raw, err = json.Marshal(Snapshot{SwapInfo: &Usage{Total: 2, Used: 1}})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"swap_info":{"total":2,"used":1}`)
}
