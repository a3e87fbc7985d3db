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
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/synapsenet/cir/internal/config"
	"github.com/synapsenet/cir/internal/httpapi"
	"github.com/synapsenet/cir/internal/llm"
	"github.com/synapsenet/cir/internal/logging"
	"github.com/synapsenet/cir/internal/metrics"
	"github.com/synapsenet/cir/internal/orchestrator"
	"github.com/synapsenet/cir/internal/tracing"
)

// --- Global Command Variables ---
var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "cir",
		Short: "Controlled Iterative Repair engine",
		Long: `cir drives an LLM through a bounded REPRODUCE/REPAIR_ANALYZE/
REPAIR_PATCH/VALIDATE loop against a code workspace until the failing
tests pass or the iteration cap is reached.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP control plane (/cir/run, /healthz, /metrics)",
		RunE:  runServe,
	}

	runCmd = &cobra.Command{
		Use:   "run [task]",
		Short: "Drive a single repair run to completion and print its result",
		Args:  cobra.ExactArgs(1),
		RunE:  runOnce,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (optional)")
	rootCmd.AddCommand(serveCmd, runCmd)
}

// resolveConfig loads Config from configPath, applying CIR_* environment
// overrides per internal/config's layering order.
func resolveConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// detectLogFormat honors an explicit CIR_LOG_FORMAT/config value, falling
// back to auto-detection: JSON when stderr is piped or redirected (a
// log aggregator downstream), text on an interactive TTY.
func detectLogFormat(configured string) string {
	if configured != "" {
		return configured
	}
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return "text"
	}
	return "json"
}

func buildLogger(cfg config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:   logging.LevelInfo,
		Service: "cir",
		Format:  detectLogFormat(cfg.LogFormat),
	})
}

func buildOrchestrator(cfg config.Config, logger *logging.Logger, m *metrics.Metrics) (*orchestrator.Orchestrator, error) {
	client := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL:           cfg.LLM.BaseURL,
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		Timeout:           cfg.LLM.Timeout,
		MaxRetries:        3,
		RequestsPerSecond: 2,
	})
	return orchestrator.New(cfg, client, logger, m)
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)
	defer logger.Close()

	shutdown, err := tracing.Setup(cmd.Context(), cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer shutdown(cmd.Context())

	_, m := metrics.NewRegistry()
	orch, err := buildOrchestrator(cfg, logger, m)
	if err != nil {
		return fmt.Errorf("building orchestrator: %w", err)
	}

	result := orch.RunTask(cmd.Context(), args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "status: %s\niterations: %d\ndetails: %s\n", result.Status, result.TotalIterations, result.Details)
	if !result.Success {
		return fmt.Errorf("run did not succeed: %s", result.Status)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)
	defer logger.Close()

	shutdown, err := tracing.Setup(context.Background(), cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer shutdown(context.Background())

	reg, m := metrics.NewRegistry()
	orch, err := buildOrchestrator(cfg, logger, m)
	if err != nil {
		return fmt.Errorf("building orchestrator: %w", err)
	}

	srv := httpapi.NewServer(orch, reg)
	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("starting cir server", "addr", addr, "workspace", cfg.WorkspacePath)
	return srv.Engine().Run(addr)
}
