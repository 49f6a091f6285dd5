package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "brigade.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
simulation:
  seed: 7
  chains: 3
  fire:
    flashpoint: 0.4
world:
  tick_rate: 30
history:
  backend: badger
auth:
  secret: s3cret
  token_ttl: 15m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Simulation.Seed)
	assert.Equal(t, 3, cfg.Simulation.Chains)
	assert.Equal(t, 0.4, cfg.Simulation.Fire.Flashpoint)
	// Незаданные поля остаются по умолчанию
	assert.Equal(t, 30, cfg.Simulation.BotsPerChain)
	assert.Equal(t, 0.75, cfg.Simulation.Fire.HeatTransferRate)
	assert.Equal(t, 30, cfg.World.TickRate)
	assert.Equal(t, time.Second/30, cfg.World.TickInterval())
	assert.Equal(t, "badger", cfg.History.Backend)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TTL)
}

func TestLoad_EmptyPathUsesEnv(t *testing.T) {
	t.Setenv("BRIGADE_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := writeConfig(t, "simulation:\n  rows: 12\n  cols: 14\n")
	t.Setenv("BRIGADE_CONFIG", path)
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Simulation.Rows)
	assert.Equal(t, 14, cfg.Simulation.Cols)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "simulation: [1, 2"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "history:\n  backend: mongo\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(writeConfig(t, "simulation:\n  rows: 0\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestServerPorts(t *testing.T) {
	s := ServerConfig{RESTPort: 9000}
	assert.Equal(t, 9000, s.GetRESTPort())

	t.Setenv("BRIGADE_METRICS_PORT", "9100")
	assert.Equal(t, 9100, s.GetMetricsPort())

	t.Setenv("BRIGADE_METRICS_PORT", "not-a-port")
	assert.Equal(t, 2112, s.GetMetricsPort())

	t.Setenv("BRIGADE_REST_PORT", "")
	assert.Equal(t, 8088, (&ServerConfig{}).GetRESTPort())
}
