package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/waypoint/pkg/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "waypoint.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []domain.RunID{"run-1", "run-2", "run-3", "run-4", "run-5", "run-6"}, cfg.RunIDs())
	assert.Equal(t, 240.0, cfg.ReferenceWidthCm)
	assert.Equal(t, 1.0, cfg.TurnThresholdDeg)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
runs: 3
run_prefix: lane
reference_width_cm: "180"
background:
  source: field.png
  width_px: 1200
store:
  backend: redis
  redis_addr: cache:6379
  ttl: 90s
render:
  annotate: off
log:
  level: debug
`)
	cfg, err := load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, []domain.RunID{"lane-1", "lane-2", "lane-3"}, cfg.RunIDs())
	assert.Equal(t, 180.0, cfg.ReferenceWidthCm)
	require.NotNil(t, cfg.Background)
	assert.Equal(t, domain.Background{Source: "field.png", WidthPx: 1200}, *cfg.Background)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 90*time.Second, cfg.Store.TTL)
	assert.Equal(t, "waypoint:run:", cfg.Store.Prefix, "untouched fields keep their default")
	assert.False(t, cfg.Render.Annotate)
	assert.Equal(t, 1.0, cfg.Render.Scale)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	path := writeConfig(t, "runs: 3\nstore:\n  backend: file\n")
	cfg, err := load(path, []string{
		"WAYPOINT_RUNS=2",
		"WAYPOINT_RUN_PREFIX=team",
		"WAYPOINT_STORE_BACKEND=memory",
		"WAYPOINT_HTTP_ADDR=127.0.0.1:9000",
		"WAYPOINT_STORE_TTL=1m",
		"HOME=/root",
		"WAYPOINT_UNRELATED",
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.RunID{"team-1", "team-2"}, cfg.RunIDs())
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, time.Minute, cfg.Store.TTL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "colour: red\n", "colour"},
		{"bad yaml", "runs: [\n", "failed to parse"},
		{"bad duration", "store:\n  ttl: soon\n", "invalid config"},
		{"zero runs", "runs: 0\n", "runs must be at least 1"},
		{"bad backend", "store:\n  backend: s3\n", `unknown store.backend "s3"`},
		{"bad reference", "reference_width_cm: -1\n", "reference_width_cm must be positive"},
		{"bad background", "background:\n  source: x.png\n", "background: invalid background: width_px"},
		{"huge background", "background:\n  width_px: 1000\n  height_px: 1e9\n", "height_px must be in [0, 8192]"},
		{"bad log level", "log:\n  level: loud\n", "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(writeConfig(t, tt.body), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Runs = 0
	cfg.RunPrefix = " "
	cfg.Render.Scale = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runs")
	assert.Contains(t, err.Error(), "run_prefix")
	assert.Contains(t, err.Error(), "render.scale")
}
