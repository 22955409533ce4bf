package conf

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"
)

// ErrInvalidConfig wraps every validation failure reported by Load.
var ErrInvalidConfig = errors.New("invalid configuration")

// Default returns a Config holding every default value. Username and
// password have no default and must be supplied.
func Default() Config {
	return Config{
		Auth: Auth{
			SessionDuration: 3600,
		},
		Server: Server{
			Host:           "0.0.0.0",
			Port:           8000,
			MaxConnections: 3,
		},
		Monitor: Monitor{
			Interval:     Duration{time.Second},
			SampleWindow: Duration{500 * time.Millisecond},
			DiskTTL:      Duration{time.Minute},
			Docker:       true,
		},
		Log: Log{
			UTCLogging: true,
		},
	}
}

// Load reads the TOML file at path (a missing file is fine), applies the
// environment on top of it and validates the result.
// Run this at start; a returned error must abort the process.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, env lookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat config file %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

// lookup tries the lower-case key first, then its upper-case form.
func (env lookupFunc) lookup(key string) (string, bool) {
	if v, ok := env(key); ok {
		return v, true
	}
	return env(strings.ToUpper(key))
}

// applyEnv overlays environment values onto c. Conversion failures are
// collected and reported together.
func (c *Config) applyEnv(env lookupFunc) error {
	var errs []error

	set := func(key string, apply func(string) error) {
		v, ok := env.lookup(key)
		if !ok {
			return
		}
		if err := apply(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	set("username", func(v string) error { c.Username = v; return nil })
	set("password", func(v string) error { c.Password = v; return nil })
	set("host", func(v string) error { c.Host = v; return nil })
	set("session_duration", func(v string) (err error) {
		c.SessionDuration, err = cast.ToInt64E(v)
		return err
	})
	set("port", func(v string) (err error) {
		c.Port, err = cast.ToIntE(v)
		return err
	})
	set("max_connections", func(v string) (err error) {
		c.MaxConnections, err = cast.ToIntE(v)
		return err
	})
	set("debug", func(v string) (err error) {
		c.Debug, err = cast.ToBoolE(v)
		return err
	})
	set("utc_logging", func(v string) (err error) {
		c.UTCLogging, err = cast.ToBoolE(v)
		return err
	})
	set("docker", func(v string) (err error) {
		c.Docker, err = cast.ToBoolE(v)
		return err
	})
	set("interval", func(v string) (err error) {
		c.Interval.Duration, err = cast.ToDurationE(v)
		return err
	})
	set("sample_window", func(v string) (err error) {
		c.SampleWindow.Duration, err = cast.ToDurationE(v)
		return err
	})
	set("disk_ttl", func(v string) (err error) {
		c.DiskTTL.Duration, err = cast.ToDurationE(v)
		return err
	})
	set("processes", func(v string) (err error) {
		c.Processes, err = parseList(v)
		return err
	})
	set("services", func(v string) (err error) {
		c.Services, err = parseList(v)
		return err
	})

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// parseList accepts a JSON array (`["a","b"]`) or a comma separated list.
func parseList(v string) ([]string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if strings.HasPrefix(v, "[") {
		var list []string
		if err := json.Unmarshal([]byte(v), &list); err != nil {
			return nil, fmt.Errorf("invalid list %q: %w", v, err)
		}
		return list, nil
	}
	list := strings.Split(v, ",")
	for i := range list {
		list[i] = strings.TrimSpace(list[i])
	}
	return list, nil
}
