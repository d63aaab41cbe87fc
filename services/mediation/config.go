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
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/telemetry"
)

// Config configures the mediation service and its server process.
type Config struct {
	// Port is the HTTP listen port. Default: 12230.
	Port int `json:"port" yaml:"port" validate:"min=1,max=65535"`

	// ScenarioDir is an optional directory of scenario YAML files loaded on
	// top of the bundled defaults.
	ScenarioDir string `json:"scenario_dir" yaml:"scenario_dir"`

	// WatchScenarios reloads ScenarioDir on change.
	WatchScenarios bool `json:"watch_scenarios" yaml:"watch_scenarios"`

	// DataDir is the Badger directory for session persistence.
	// Empty runs Badger in memory.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxSteps caps the steps accepted by one simulate request. Default: 10000.
	MaxSteps int `json:"max_steps" yaml:"max_steps" validate:"min=1"`

	// MaxRuns caps the runs accepted by one simulate request. Default: 200.
	MaxRuns int `json:"max_runs" yaml:"max_runs" validate:"min=1"`

	// MaxBatch caps the agreements accepted by one batch evaluation. Default: 500.
	MaxBatch int `json:"max_batch" yaml:"max_batch" validate:"min=1"`

	// Parallelism bounds concurrent runs and batch evaluations.
	// Zero uses GOMAXPROCS.
	Parallelism int `json:"parallelism" yaml:"parallelism" validate:"min=0"`

	// SimulateRPS is the sustained rate of simulate requests. Zero disables
	// throttling. Default: 20.
	SimulateRPS float64 `json:"simulate_rps" yaml:"simulate_rps" validate:"min=0"`

	// SimulateBurst is the simulate token bucket size. Default: 40.
	SimulateBurst int `json:"simulate_burst" yaml:"simulate_burst" validate:"min=1"`

	// LogLevel is one of debug, info, warn, error. Default: info.
	LogLevel string `json:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogJSON switches console logs to JSON.
	LogJSON bool `json:"log_json" yaml:"log_json"`

	// LogDir enables dated JSON log files.
	LogDir string `json:"log_dir" yaml:"log_dir"`

	// TraceExporter is one of none, otlp, stdout. Default: none.
	TraceExporter string `json:"trace_exporter" yaml:"trace_exporter" validate:"oneof=none otlp stdout"`

	// MetricExporter is one of none, prometheus, stdout. Default: prometheus.
	MetricExporter string `json:"metric_exporter" yaml:"metric_exporter" validate:"oneof=none prometheus stdout"`

	// OTLPEndpoint is the collector address for the otlp trace exporter.
	OTLPEndpoint string `json:"otlp_endpoint" yaml:"otlp_endpoint"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Port:           12230,
		MaxSteps:       10000,
		MaxRuns:        200,
		MaxBatch:       500,
		SimulateRPS:    20,
		SimulateBurst:  40,
		LogLevel:       "info",
		TraceExporter:  telemetry.ExporterNone,
		MetricExporter: telemetry.ExporterPrometheus,
	}
}

// LoadConfig loads configuration with priority: env > file > defaults.
//
// Inputs:
//   - path: YAML or JSON config file. Optional; a missing file is ignored.
//
// Outputs:
//   - Config: Merged configuration.
//   - error: Non-nil if the file is unreadable or the result is invalid.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	loadConfigFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	return validator.New().Struct(c)
}

// Telemetry derives the telemetry configuration.
func (c Config) Telemetry(version string) telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceVersion = version
	tc.TraceExporter = c.TraceExporter
	tc.MetricExporter = c.MetricExporter
	if c.OTLPEndpoint != "" {
		tc.OTLPEndpoint = c.OTLPEndpoint
	}
	return tc
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(cfg *Config) {
	envInt("MEDIATION_PORT", &cfg.Port)
	envString("MEDIATION_SCENARIO_DIR", &cfg.ScenarioDir)
	envBool("MEDIATION_WATCH_SCENARIOS", &cfg.WatchScenarios)
	envString("MEDIATION_DATA_DIR", &cfg.DataDir)
	envInt("MEDIATION_MAX_STEPS", &cfg.MaxSteps)
	envInt("MEDIATION_MAX_RUNS", &cfg.MaxRuns)
	envInt("MEDIATION_MAX_BATCH", &cfg.MaxBatch)
	envInt("MEDIATION_PARALLELISM", &cfg.Parallelism)
	if v := os.Getenv("MEDIATION_SIMULATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.SimulateRPS = f
		}
	}
	envInt("MEDIATION_SIMULATE_BURST", &cfg.SimulateBurst)
	envString("MEDIATION_LOG_LEVEL", &cfg.LogLevel)
	envBool("MEDIATION_LOG_JSON", &cfg.LogJSON)
	envString("MEDIATION_LOG_DIR", &cfg.LogDir)
	envString("MEDIATION_TRACE_EXPORTER", &cfg.TraceExporter)
	envString("MEDIATION_METRIC_EXPORTER", &cfg.MetricExporter)
	envString("MEDIATION_OTLP_ENDPOINT", &cfg.OTLPEndpoint)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
