package conf

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config is the full runtime configuration. Embedded sections are
// flattened, so both the TOML file and the environment use plain keys
// such as `username` or `session_duration`.
type Config struct {
	Auth
	Server
	Monitor
	Log
}

type Auth struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	// SessionDuration is the session lifetime in seconds.
	SessionDuration int64 `toml:"session_duration"`
}

type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// MaxConnections caps concurrently open telemetry channels.
	MaxConnections int `toml:"max_connections"`
}

type Monitor struct {
	Interval     Duration `toml:"interval"`
	SampleWindow Duration `toml:"sample_window"`
	DiskTTL      Duration `toml:"disk_ttl"`
	Docker       bool     `toml:"docker"`
	Processes    []string `toml:"processes"`
	Services     []string `toml:"services"`
}

type Log struct {
	Debug      bool `toml:"debug"`
	UTCLogging bool `toml:"utc_logging"`
}

// Duration wraps time.Duration so it can be written as "1s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// SessionLifetime returns the session duration as a time.Duration
func (a Auth) SessionLifetime() time.Duration {
	return time.Duration(a.SessionDuration) * time.Second
}

// Address returns the listen address
func (s Server) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
