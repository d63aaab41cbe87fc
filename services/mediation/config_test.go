// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mediation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10000, cfg.MaxSteps)
	assert.Equal(t, 200, cfg.MaxRuns)
	assert.Empty(t, cfg.DataDir)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mediation.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9000
scenario_dir: /etc/mediation/scenarios
watch_scenarios: true
max_steps: 500
simulate_rps: 0
log_level: debug
`), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/etc/mediation/scenarios", cfg.ScenarioDir)
	assert.True(t, cfg.WatchScenarios)
	assert.Equal(t, 500, cfg.MaxSteps)
	assert.Equal(t, 0.0, cfg.SimulateRPS)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 200, cfg.MaxRuns, "unset fields keep defaults")
}

func TestLoadConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mediation.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 8088, "max_runs": 10}`), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8088, cfg.Port)
	assert.Equal(t, 10, cfg.MaxRuns)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mediation.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9000\nmax_steps: 500\n"), 0600))

	t.Setenv("MEDIATION_PORT", "9100")
	t.Setenv("MEDIATION_DATA_DIR", "/var/lib/mediation")
	t.Setenv("MEDIATION_SIMULATE_RPS", "2.5")
	t.Setenv("MEDIATION_LOG_JSON", "true")
	t.Setenv("MEDIATION_MAX_RUNS", "not-a-number")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 500, cfg.MaxSteps)
	assert.Equal(t, "/var/lib/mediation", cfg.DataDir)
	assert.Equal(t, 2.5, cfg.SimulateRPS)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, 200, cfg.MaxRuns, "unparseable env values are ignored")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero port", "port: 0"},
		{"zero max steps", "max_steps: 0"},
		{"negative rps", "simulate_rps: -1"},
		{"bad trace exporter", "trace_exporter: jaeger"},
		{"bad log level", "log_level: loud"},
		{"unparseable", "port: [1, 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "mediation.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0600))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestConfig_DerivedConfigs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parallelism = 3
	cfg.TraceExporter = "stdout"
	cfg.OTLPEndpoint = "collector:4317"

	svc := cfg.Service()
	assert.Equal(t, ServiceConfig{MaxSteps: 10000, MaxRuns: 200, MaxBatch: 500, Parallelism: 3}, svc)

	tc := cfg.Telemetry("1.2.3")
	assert.Equal(t, "1.2.3", tc.ServiceVersion)
	assert.Equal(t, "stdout", tc.TraceExporter)
	assert.Equal(t, "prometheus", tc.MetricExporter)
	assert.Equal(t, "collector:4317", tc.OTLPEndpoint)
}
