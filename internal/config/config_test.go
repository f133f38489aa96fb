package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/stepflow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, 1000, cfg.Engine.MaxSteps)
	assert.Equal(t, config.DriverMemory, cfg.Store.Driver)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stepflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  shutdown_timeout: 10s
log:
  level: debug
store:
  driver: redis
  redis:
    addr: redis:6379
    ttl: 1h
`), 0o644))

	cfg, err := config.Load(path, env(map[string]string{
		"STEPFLOW_SERVER_PORT":      "9100",
		"STEPFLOW_LOG_FORMAT":       "json",
		"STEPFLOW_ENGINE_MAX_STEPS": "0",
		"STEPFLOW_STORE_REDIS_DB":   "2",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 0, cfg.Engine.MaxSteps)
	assert.Equal(t, config.DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, time.Hour, cfg.Store.Redis.TTL)
	assert.Equal(t, "stepflow:run:", cfg.Store.Redis.Prefix)
}

func TestLoad_EnvDuration(t *testing.T) {
	cfg, err := config.Load("", env(map[string]string{
		"STEPFLOW_SERVER_SHUTDOWN_TIMEOUT": "250ms",
	}))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Server.ShutdownTimeout)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), env(nil))
	assert.ErrorContains(t, err, "failed to read config")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [1, 2"), 0o644))
	_, err = config.Load(bad, env(nil))
	assert.ErrorContains(t, err, "failed to parse")

	_, err = config.Load("", env(map[string]string{"STEPFLOW_SERVER_PORT": "eighty"}))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*config.Config){
		"port":       func(c *config.Config) { c.Server.Port = 70000 },
		"shutdown":   func(c *config.Config) { c.Server.ShutdownTimeout = 0 },
		"level":      func(c *config.Config) { c.Log.Level = "loud" },
		"format":     func(c *config.Config) { c.Log.Format = "xml" },
		"max steps":  func(c *config.Config) { c.Engine.MaxSteps = -1 },
		"driver":     func(c *config.Config) { c.Store.Driver = "sqlite" },
		"redis addr": func(c *config.Config) { c.Store.Driver = config.DriverRedis; c.Store.Redis.Addr = "" },
		"transport":  func(c *config.Config) { c.MCP.Transport = "carrier-pigeon" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}
}

func TestEnvKeys(t *testing.T) {
	keys := config.EnvKeys()
	assert.Contains(t, keys, "STEPFLOW_SERVER_PORT")
	assert.Contains(t, keys, "STEPFLOW_STORE_REDIS_ADDR")
	assert.Contains(t, keys, "STEPFLOW_SERVER_SHUTDOWN_TIMEOUT")
	assert.NotContains(t, keys, "STEPFLOW_SERVER")
}
