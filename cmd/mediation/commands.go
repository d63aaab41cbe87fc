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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/pkg/ux"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/durability"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/scenario"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/strategic"
)

func newServeCmd(st *cliState) *cobra.Command {
	var port int
	var dataDir string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the mediation HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := st.config
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir = dataDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if debug {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := mediation.NewServer(ctx, cfg, st.logger.Slog())
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides config)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Badger directory for sessions. Empty keeps sessions in memory")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable Gin debug mode")
	return cmd
}

func newScenariosCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios [id]",
		Short: "List loaded scenarios, or show one with its midpoint agreement",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := st.localService()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				detail, err := svc.Scenario(args[0])
				if err != nil {
					return err
				}
				if st.json {
					return writeJSON(out, detail)
				}
				return yaml.NewEncoder(out).Encode(detail)
			}
			list := svc.ListScenarios()
			if st.json {
				return writeJSON(out, mediation.ScenarioListResponse{Scenarios: list})
			}
			ux.RenderScenarios(out, list)
			return nil
		},
	}
}

type agreementFlags struct {
	file   string
	inline string
}

func (f *agreementFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "agreement-file", "f", "", "YAML or JSON agreement file")
	cmd.Flags().StringVarP(&f.inline, "agreement", "a", "", "Inline JSON agreement")
}

// load resolves the agreement. Without a file or inline value the
// scenario's midpoint agreement is used.
func (f *agreementFlags) load(svc *mediation.Service, scenarioID string) (scenario.Agreement, error) {
	switch {
	case f.file != "" && f.inline != "":
		return nil, fmt.Errorf("--agreement-file and --agreement are mutually exclusive")
	case f.file != "":
		return readAgreementFile(f.file)
	case f.inline != "":
		var a scenario.Agreement
		if err := json.Unmarshal([]byte(f.inline), &a); err != nil {
			return nil, fmt.Errorf("parse --agreement: %w", err)
		}
		return a, nil
	default:
		detail, err := svc.Scenario(scenarioID)
		if err != nil {
			return nil, err
		}
		slog.Info("No agreement given, using the scenario midpoint", "scenario", scenarioID)
		return detail.Midpoint, nil
	}
}

func readAgreementFile(path string) (scenario.Agreement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agreement: %w", err)
	}
	var a scenario.Agreement
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		err = json.Unmarshal(data, &a)
	} else {
		err = yaml.Unmarshal(data, &a)
	}
	if err != nil {
		return nil, fmt.Errorf("parse agreement %s: %w", path, err)
	}
	return a, nil
}

func newEvaluateCmd(st *cliState) *cobra.Command {
	var af agreementFlags
	cmd := &cobra.Command{
		Use:   "evaluate <scenario>",
		Short: "Score an agreement: utilities, acceptance, ZOPA, Nash product and equity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := st.localService()
			if err != nil {
				return err
			}
			a, err := af.load(svc, args[0])
			if err != nil {
				return err
			}
			m, err := svc.Evaluate(cmd.Context(), args[0], a)
			if err != nil {
				return err
			}
			if st.json {
				return writeJSON(cmd.OutOrStdout(), m)
			}
			ux.RenderEvaluation(cmd.OutOrStdout(), m)
			return nil
		},
	}
	af.register(cmd)
	return cmd
}

func newSimulateCmd(st *cliState) *cobra.Command {
	var (
		af         agreementFlags
		steps      int
		runs       int
		seed       uint64
		statesFile string
		incidents  bool
	)
	cmd := &cobra.Command{
		Use:   "simulate <scenario>",
		Short: "Run a seeded durability simulation for an agreement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := st.localService()
			if err != nil {
				return err
			}
			a, err := af.load(svc, args[0])
			if err != nil {
				return err
			}
			req := mediation.SimulateRequest{
				ScenarioID: args[0],
				Agreement:  a,
				Steps:      steps,
				Runs:       runs,
			}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}
			if statesFile != "" {
				if req.StrategicStates, err = readStatesFile(statesFile); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			var hook func(durability.Incident)
			if incidents && !st.json {
				hook = func(inc durability.Incident) { ux.RenderIncident(out, inc) }
			}

			var resp *mediation.SimulateResponse
			run := func() error {
				var err error
				resp, err = svc.Simulate(cmd.Context(), req, hook)
				return err
			}
			if runs > 1 && hook == nil && !st.json {
				err = ux.WithSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Simulating %d runs", runs), run)
			} else {
				err = run()
			}
			if err != nil {
				return err
			}
			if st.json {
				return writeJSON(out, resp)
			}
			ux.RenderSimulation(out, resp)
			return nil
		},
	}
	af.register(cmd)
	cmd.Flags().IntVar(&steps, "steps", 1000, "Simulation steps")
	cmd.Flags().IntVar(&runs, "runs", 1, "Independent runs to aggregate")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for a reproducible run. Omit for a random seed")
	cmd.Flags().StringVar(&statesFile, "states-file", "", "YAML or JSON map of party to strategic state")
	cmd.Flags().BoolVar(&incidents, "incidents", false, "Print each incident of the first run as it occurs")
	return cmd
}

func readStatesFile(path string) (map[string]strategic.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read states: %w", err)
	}
	var states map[string]strategic.State
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		err = json.Unmarshal(data, &states)
	} else {
		err = yaml.Unmarshal(data, &states)
	}
	if err != nil {
		return nil, fmt.Errorf("parse states %s: %w", path, err)
	}
	return states, nil
}

// localService builds an in-process service over the default and configured
// scenarios. Sessions are not persisted.
func (st *cliState) localService() (*mediation.Service, error) {
	logger := slog.Default()
	reg := scenario.NewRegistry(logger)
	if err := reg.LoadDefaults(); err != nil {
		return nil, err
	}
	if st.config.ScenarioDir != "" {
		if err := reg.LoadDir(st.config.ScenarioDir); err != nil {
			return nil, err
		}
	}
	return mediation.NewService(st.config.Service(), reg, mediation.NewSessionManager(nil, logger)).
		WithLogger(logger), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
