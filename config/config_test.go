package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
gate_path_jobs: /gate/jobs
gate_path_opts: /gate/opts
gate_path_exit: /gate/exit
gate_path_stop: /gate/stop
gate_path_delete: /gate/delete
gate_path_output: /gate/output
gate_path_dump: /gate/dump
config_schedulers: ["pbs"]
service_states: ["waiting", "queued", "running", "closing", "cleanup", "done", "failed", "aborted", "killed"]
services:
  demo:
    quota: 1024
    job_size: 10
    min_lifetime: 24
    max_lifetime: 720
    max_runtime: 48
    schema_path: /gate/schemas/demo.yaml
`

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(30), cfg.ConfigSleepTime)
	assert.Equal(t, int64(60), cfg.ConfigShutdownTime)
	assert.Equal(t, ":8080", cfg.Admin.Addr)
}

func TestLoadRejectsMissingSchemaPath(t *testing.T) {
	path := writeConfigFile(t, `
gate_path_jobs: /gate/jobs
config_schedulers: ["pbs"]
service_states: ["waiting"]
services:
  demo:
    quota: 1
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestGatePathsDerivesStateDirsFromJobsParent(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)
	cfg, err := Load(path)
	require.NoError(t, err)
	paths := cfg.GatePaths()
	assert.Equal(t, "/gate/running", paths.States["running"])
}

func TestQuotaConfigsConvertHoursToDuration(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)
	cfg, err := Load(path)
	require.NoError(t, err)
	qc := cfg.QuotaConfigs()["demo"]
	assert.Equal(t, int64(1024), qc.QuotaMB)
	assert.Equal(t, float64(24), qc.MinLifetime.Hours())
}
