// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/pkg/logging"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/pkg/ux"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation"
)

// outputJSON selects indented JSON instead of the ux renderers.
const outputJSON = "json"

// cliState is shared by every subcommand. It is populated by the root
// command's PersistentPreRunE.
type cliState struct {
	configPath  string
	logLevel    string
	output      string
	scenarioDir string

	config mediation.Config
	logger *logging.Logger
	json   bool
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	root := &cobra.Command{
		Use:   "mediation",
		Short: "Evaluate negotiated agreements and simulate their durability",
		Long: `mediation scores proposed multi-party agreements against a scenario's
preferences, estimates acceptance, and runs seeded Monte Carlo simulations
of how an agreement holds up after signing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if st.logger != nil {
				st.logger.Close()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&st.configPath, "config", "", "Path to a YAML or JSON config file")
	flags.StringVar(&st.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	flags.StringVarP(&st.output, "output", "o", "", "Output format (rich, plain, machine, json). Default depends on the terminal")
	flags.StringVar(&st.scenarioDir, "scenario-dir", "", "Directory of additional scenario files")

	root.AddCommand(
		newServeCmd(st),
		newScenariosCmd(st),
		newEvaluateCmd(st),
		newSimulateCmd(st),
	)
	return root
}

// init loads configuration, applies flag overrides, and configures logging
// and output.
func (st *cliState) init(cmd *cobra.Command) error {
	cfg, err := mediation.LoadConfig(st.configPath)
	if err != nil {
		return err
	}
	if st.logLevel != "" {
		cfg.LogLevel = st.logLevel
	}
	if st.scenarioDir != "" {
		cfg.ScenarioDir = st.scenarioDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	st.config = cfg

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	st.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.LogDir,
		Service: "mediation",
		JSON:    cfg.LogJSON,
		Output:  cmd.ErrOrStderr(),
	})
	slog.SetDefault(st.logger.Slog())

	switch st.output {
	case "":
		ux.InitLevel()
	case outputJSON:
		st.json = true
		ux.SetLevel(ux.LevelMachine)
	case string(ux.LevelRich), string(ux.LevelPlain), string(ux.LevelMachine):
		ux.SetLevel(ux.OutputLevel(st.output))
	default:
		return fmt.Errorf("unknown output format %q", st.output)
	}
	return nil
}
