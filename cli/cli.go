// Copyright 2022 uwu tools Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package cli wires configuration, the GitHub client, discovery, fetching,
// and the orchestrator into one runnable pipeline command.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ckerr6/ghintel/internal/config"
	"github.com/ckerr6/ghintel/internal/dictionary"
	"github.com/ckerr6/ghintel/internal/discovery"
	"github.com/ckerr6/ghintel/internal/fetch"
	"github.com/ckerr6/ghintel/internal/githubclient"
	"github.com/ckerr6/ghintel/internal/log"
	"github.com/ckerr6/ghintel/internal/orchestrator"
	"github.com/ckerr6/ghintel/internal/ratelimit"
	"github.com/ckerr6/ghintel/internal/storage"
)

// shutdownGrace is how long a run is given to drain in-flight candidates
// after the first interrupt signal before a second signal forces exit.
const shutdownGrace = 30 * time.Second

type cliFlags struct {
	configPath         string
	seedOrgs           []string
	seedRepos          []string
	watchlistUsernames []string
	workerConcurrency  int
	freshnessWindowDay int
	databaseDSN        string
	logFormat          string
	useMemoryStore     bool
}

var flags = &cliFlags{}

var rootCmd = &cobra.Command{
	Use:   "ghintel",
	Short: "ghintel",
	Long:  "ghintel discovers GitHub contributors, enriches their public profiles into developer intelligence records, and persists the results.",
	RunE:  run,
}

// Execute runs the root command, printing any returned error to stderr.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringArrayVar(&flags.seedOrgs, "org", nil, "seed organization to discover members from (repeatable)")
	rootCmd.PersistentFlags().StringArrayVar(&flags.seedRepos, "repo", nil, "seed owner/repo to discover contributors from (repeatable)")
	rootCmd.PersistentFlags().StringArrayVar(&flags.watchlistUsernames, "watch", nil, "watchlist username, always refreshed first (repeatable)")
	rootCmd.PersistentFlags().IntVar(&flags.workerConcurrency, "workers", 0, "worker concurrency override (0 uses config/default)")
	rootCmd.PersistentFlags().IntVar(&flags.freshnessWindowDay, "freshness-days", 0, "freshness window in days override (0 uses config/default)")
	rootCmd.PersistentFlags().StringVar(&flags.databaseDSN, "database-dsn", "", "Postgres connection string (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "text or json (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flags.useMemoryStore, "memory-store", false, "use an in-memory store instead of Postgres (for local trial runs)")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	applyFlagOverrides(&cfg)

	logger := log.NewLogger(log.ParseLevel(cfg.LogLevel))
	if cfg.LogFormat == "json" {
		logger = log.NewStructuredLogger(log.ParseLevel(cfg.LogLevel))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupted := installSignalHandler(ctx, cancel, logger)

	capPerHour := ratelimit.AuthenticatedCapPerHour
	if cfg.GitHubToken == "" {
		capPerHour = ratelimit.UnauthenticatedCapPerHour
	}
	budget := ratelimit.New(capPerHour, cfg.MinIntercallSpacing())
	client := githubclient.New(ctx, cfg.GitHubToken, cfg.HTTPTimeout(), budget, logger)

	store, err := buildStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}

	source := discovery.New(client, store.ExistingUsernames, cfg.SeedOrgs, cfg.SeedRepos, cfg.WatchlistUsernames, cfg.FreshnessWindow(), logger)
	fetcher := fetch.New(client, cfg.PerUserRepoCap, logger)
	concurrency := cfg.WorkerConcurrency
	if bound := orchestrator.WorkerCount(capPerHour); concurrency > bound {
		concurrency = bound
	}
	orch := orchestrator.New(fetcher, store, budget, dictionary.Frameworks, dictionary.Tools, concurrency, cfg.PerCandidateBudget(), logger)

	candidates, err := source.Discover(ctx)
	if err != nil {
		store.Close()
		return fmt.Errorf("discover candidates: %w", err)
	}
	logger.Info("discovery complete", "candidates", len(candidates))

	events := orch.Run(ctx, candidates)
	var persisted, failed, skipped int
	for ev := range events {
		switch ev.Outcome {
		case orchestrator.OutcomePersisted:
			persisted++
		case orchestrator.OutcomeGoneMissing, orchestrator.OutcomeCancelled:
			skipped++
		default:
			failed++
		}
		logger.V(1).Info("candidate processed",
			"run_id", ev.RunID,
			"username", ev.Username,
			"outcome", ev.Outcome,
			"api_remaining", ev.APIRemaining,
			"reset_at", ev.ResetAt,
			"queue_size", ev.QueueSize,
		)
	}

	logger.Info("run complete", "persisted", persisted, "failed", failed, "skipped", skipped)
	store.Close()

	if interrupted() {
		// spec.md's "interrupted cleanly" exit code: the run drained and
		// returned normally, but only because a shutdown signal cancelled
		// it, so report 130 instead of the default success code.
		os.Exit(130)
	}
	return nil
}

func applyFlagOverrides(cfg *config.Config) {
	if len(flags.seedOrgs) > 0 {
		cfg.SeedOrgs = flags.seedOrgs
	}
	if len(flags.seedRepos) > 0 {
		cfg.SeedRepos = flags.seedRepos
	}
	if len(flags.watchlistUsernames) > 0 {
		cfg.WatchlistUsernames = flags.watchlistUsernames
	}
	if flags.workerConcurrency > 0 {
		cfg.WorkerConcurrency = flags.workerConcurrency
	}
	if flags.freshnessWindowDay > 0 {
		cfg.FreshnessWindowDays = flags.freshnessWindowDay
	}
	if flags.databaseDSN != "" {
		cfg.DatabaseDSN = flags.databaseDSN
	}
	if flags.logFormat != "" {
		cfg.LogFormat = flags.logFormat
	}
}

func buildStore(cfg config.Config, logger *log.Logger) (storage.Store, error) {
	if flags.useMemoryStore || cfg.DatabaseDSN == "" {
		return storage.NewMemory(), nil
	}
	return storage.NewPostgres(cfg.DatabaseDSN, cfg.WorkerConcurrency, logger)
}

// installSignalHandler cancels ctx on the first SIGINT/SIGTERM so in-flight
// work can drain, and force-exits if a second signal arrives before
// shutdownGrace elapses. The returned func reports whether a signal ever
// triggered the cancellation, so the caller can distinguish a clean
// signal-driven shutdown (exit 130) from ordinary completion (exit 0).
func installSignalHandler(ctx context.Context, cancel context.CancelFunc, logger *log.Logger) func() bool {
	var signalled int32
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		atomic.StoreInt32(&signalled, 1)
		logger.Info("shutdown signal received, draining in-flight candidates", "grace", shutdownGrace)
		cancel()
		select {
		case <-sigCh:
			logger.Info("second shutdown signal received, exiting immediately")
			os.Exit(1)
		case <-time.After(shutdownGrace):
		}
	}()
	return func() bool { return atomic.LoadInt32(&signalled) == 1 }
}
