package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "SuperMarioBros-v0", cfg.Rollout.EnvID)
	assert.Equal(t, 4, cfg.Rollout.NumEnvs)
	assert.Equal(t, 100, cfg.Rollout.Steps)
	assert.Equal(t, 20, cfg.Rollout.LogEvery)
	assert.Equal(t, "simple", cfg.Rollout.ActionSet)
	assert.Equal(t, 2, cfg.Smoke.NumEnvs)
	assert.Equal(t, []string{"SuperMarioBros-v0", "SuperMarioBros-1-1-v0", "SuperMarioBros2-v0"}, cfg.Smoke.IDs)
	assert.Empty(t, cfg.Source)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := writeFile(t, "smbgym.yaml", `
rollout:
  num_envs: 8
  steps: 50
  env_id: SuperMarioBros-1-2-v1
smoke:
  ids: [SuperMarioBros-v3]
metrics:
  addr: ":9090"
`)
	t.Setenv("SMBGYM_ROLLOUT_STEPS", "75")
	t.Setenv("SMBGYM_LOGGING_VERBOSE", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, 8, cfg.Rollout.NumEnvs)
	assert.Equal(t, 75, cfg.Rollout.Steps, "environment beats the file")
	assert.Equal(t, "SuperMarioBros-1-2-v1", cfg.Rollout.EnvID)
	assert.Equal(t, 20, cfg.Rollout.LogEvery, "unset keys keep defaults")
	assert.Equal(t, []string{"SuperMarioBros-v3"}, cfg.Smoke.IDs)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.True(t, cfg.Logging.Verbose)
}

func TestLoadConfigFindsDefaultPath(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "smbgym.yaml"), []byte("rollout:\n  seed: 42\n"), 0o644))

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Rollout.Seed)
	assert.Equal(t, "smbgym.yaml", cfg.Source)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "rollout:\n  num_envs: 0\n  log_every: 0\n")
		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rollout.num_envs")
		assert.Contains(t, err.Error(), "rollout.log_every")
	})
}

func TestDump(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, cfg))
	assert.Contains(t, buf.String(), "rollout:\n  env_id: SuperMarioBros-v0\n")

	var back Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, *cfg, back)
}
