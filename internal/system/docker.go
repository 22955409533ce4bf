package system

import (
	"context"
	"encoding/json"
	"strings"
)

// dockerStats returns one JSON object per running container. Any failure
// yields an empty list.
func (c *Collector) dockerStats(ctx context.Context) []json.RawMessage {
	stats := []json.RawMessage{}

	// `docker stats` blocks on stopped containers, so only ask when some run
	ids, err := c.run(ctx, "docker", "ps", "-q")
	if err != nil {
		c.log.Debug().Err(err).Msg("checking containers")
		return stats
	}
	if ids == "" {
		return stats
	}

	out, err := c.run(ctx, "docker", "stats", "--no-stream", "--format", "{{json .}}")
	if err != nil {
		c.log.Error().Err(err).Msg("running docker stats")
		return stats
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !json.Valid([]byte(line)) {
			continue
		}
		stats = append(stats, json.RawMessage(line))
	}
	return stats
}
