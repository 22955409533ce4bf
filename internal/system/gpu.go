package system

import (
	"context"
	"encoding/json"
	"runtime"
	"strings"
)

// gpuModels attempts to get the installed GPU models. Detection shells
// out to lspci on linux and system_profiler on darwin.
func (i *Inspector) gpuModels(ctx context.Context) []string {
	switch runtime.GOOS {
	case "linux":
		out, err := i.run(ctx, "lspci")
		if err != nil {
			i.log.Debug().Err(err).Msg("lspci unavailable")
			return nil
		}
		return parseLspci(out)
	case "darwin":
		out, err := i.run(ctx, "system_profiler", "SPDisplaysDataType", "-json")
		if err != nil {
			i.log.Debug().Err(err).Msg("system_profiler unavailable")
			return nil
		}
		return parseSystemProfiler(out)
	}
	return nil
}

func parseLspci(out string) []string {
	var models []string
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "VGA compatible controller") && !strings.Contains(line, "3D controller") {
			continue
		}
		if idx := strings.LastIndex(line, ": "); idx >= 0 {
			models = append(models, strings.TrimSpace(line[idx+2:]))
		}
	}
	return models
}

func parseSystemProfiler(out string) []string {
	var doc struct {
		Displays []struct {
			Model string `json:"sppci_model"`
		} `json:"SPDisplaysDataType"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		return nil
	}

	var models []string
	for _, d := range doc.Displays {
		if d.Model != "" {
			models = append(models, d.Model)
		}
	}
	return models
}
