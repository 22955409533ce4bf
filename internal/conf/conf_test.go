package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Default()
	cfg.Username = "admin"
	cfg.Password = "CorrectHorseBattery9!"
	return cfg
}

func envOf(m map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, int64(3600), cfg.SessionDuration)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, time.Second, cfg.Interval.Duration)
	assert.True(t, cfg.UTCLogging)
	assert.Equal(t, time.Hour, cfg.SessionLifetime())
	assert.Equal(t, "0.0.0.0:8000", cfg.Address())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
username = "operator"
password = "CorrectHorseBattery9!"
session_duration = 120
port = 9100
interval = "750ms"
processes = ["nginx", "postgres"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := load(path, envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, "operator", cfg.Username)
	assert.Equal(t, int64(120), cfg.SessionDuration)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Interval.Duration)
	assert.Equal(t, []string{"nginx", "postgres"}, cfg.Processes)
	assert.Equal(t, 3, cfg.MaxConnections)
}

func TestLoadMissingCredentials(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "absent.toml"), envOf(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "username is required")
	assert.Contains(t, err.Error(), "password is required")
}

func TestApplyEnv(t *testing.T) {
	t.Run("overrides", func(t *testing.T) {
		cfg := validConfig()
		err := cfg.applyEnv(envOf(map[string]string{
			"username":         "monitor",
			"SESSION_DURATION": "60",
			"debug":            "true",
			"interval":         "2s",
			"services":         `["sshd"]`,
			"processes":        "nginx, redis",
		}))
		require.NoError(t, err)
		assert.Equal(t, "monitor", cfg.Username)
		assert.Equal(t, int64(60), cfg.SessionDuration)
		assert.True(t, cfg.Debug)
		assert.Equal(t, 2*time.Second, cfg.Interval.Duration)
		assert.Equal(t, []string{"sshd"}, cfg.Services)
		assert.Equal(t, []string{"nginx", "redis"}, cfg.Processes)
	})

	t.Run("lower case wins", func(t *testing.T) {
		cfg := validConfig()
		require.NoError(t, cfg.applyEnv(envOf(map[string]string{"port": "8100", "PORT": "8200"})))
		assert.Equal(t, 8100, cfg.Port)
	})

	t.Run("bad values", func(t *testing.T) {
		cfg := validConfig()
		err := cfg.applyEnv(envOf(map[string]string{
			"port":     "eighty",
			"services": "[broken",
		}))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "port")
		assert.Contains(t, err.Error(), "services")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"short username", func(c *Config) { c.Username = "abc" }, "username must be at least 4"},
		{"short password", func(c *Config) { c.Password = "Ab1!" }, "password must be at least 8"},
		{"no symbol", func(c *Config) { c.Password = "Password123" }, "a special character"},
		{"no upper", func(c *Config) { c.Password = "password123!" }, "an uppercase letter"},
		{"no digit", func(c *Config) { c.Password = "Password!!" }, "a digit"},
		{"zero duration", func(c *Config) { c.SessionDuration = 0 }, "session_duration"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "port 70000"},
		{"fast interval", func(c *Config) { c.Interval = Duration{10 * time.Millisecond} }, "interval"},
		{"no slots", func(c *Config) { c.MaxConnections = 0 }, "max_connections"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
