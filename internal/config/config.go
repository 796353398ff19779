// Package config loads and validates the pipeline's configuration surface,
// enumerated exactly as spec.md §6: CLI flags take precedence over
// environment variables, which take precedence over a YAML config file,
// which takes precedence over built-in defaults. Unknown YAML keys are
// rejected at load time.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"sigs.k8s.io/release-utils/env"
)

// GitHubTokenEnvKey is the environment variable carrying the GitHub API
// credential. An absent token results in an anonymous (60 req/hour) client.
const GitHubTokenEnvKey = "GITHUB_TOKEN"

// ErrUnknownOption is returned when the YAML config file sets a key this
// pipeline does not recognize.
var ErrUnknownOption = errors.New("unknown configuration option")

// Config is the full, validated configuration for one pipeline run.
type Config struct {
	GitHubToken        string   `yaml:"github_token"`
	SeedOrgs           []string `yaml:"seed_orgs"`
	SeedRepos          []string `yaml:"seed_repos"`
	WatchlistUsernames []string `yaml:"watchlist_usernames"`

	FreshnessWindowDays   int `yaml:"freshness_window_days"`
	WorkerConcurrency     int `yaml:"worker_concurrency"`
	PerUserRepoCap        int `yaml:"per_user_repo_cap"`
	HTTPTimeoutSeconds    int `yaml:"http_timeout_seconds"`
	PerCandidateBudgetSec int `yaml:"per_candidate_budget_seconds"`
	MinIntercallSpacingMS int `yaml:"min_intercall_spacing_ms"`

	DictionariesVersion string `yaml:"dictionaries_version"`

	// Ambient options not named in spec.md §6's pipeline-core table but
	// required to wire the logging and storage layers this core owns.
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // "text" or "json"
	DatabaseDSN string `yaml:"database_dsn"`
}

// Default returns a Config populated with the defaults spec.md §6 lists.
func Default() Config {
	return Config{
		FreshnessWindowDays:   30,
		WorkerConcurrency:     8,
		PerUserRepoCap:        50,
		HTTPTimeoutSeconds:    30,
		PerCandidateBudgetSec: 600,
		MinIntercallSpacingMS: 720,
		LogLevel:              "info",
		LogFormat:             "text",
	}
}

// Load builds a Config by layering, in increasing precedence, the defaults,
// a YAML file (if present), and the GITHUB_TOKEN environment variable (the
// only option read from the environment), with CLI flags (applied by the
// caller after Load returns) taking final precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config file %s: %w", path, err)
			}
		} else {
			if err := parseStrictYAML(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	cfg.GitHubToken = env.Default(GitHubTokenEnvKey, cfg.GitHubToken)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate configuration: %w", err)
	}

	return cfg, nil
}

func parseStrictYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownOption, err)
	}
	return nil
}

// Validate rejects configurations that cannot produce a working pipeline.
func (c *Config) Validate() error {
	if c.WorkerConcurrency <= 0 {
		return errors.New("worker_concurrency must be positive")
	}
	if c.FreshnessWindowDays < 0 {
		return errors.New("freshness_window_days must not be negative")
	}
	if c.PerUserRepoCap <= 0 {
		return errors.New("per_user_repo_cap must be positive")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return errors.New("http_timeout_seconds must be positive")
	}
	if c.PerCandidateBudgetSec <= 0 {
		return errors.New("per_candidate_budget_seconds must be positive")
	}
	if c.MinIntercallSpacingMS < 0 {
		return errors.New("min_intercall_spacing_ms must not be negative")
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format must be 'text' or 'json', got %q", c.LogFormat)
	}
	return nil
}

// FreshnessWindow returns FreshnessWindowDays as a time.Duration.
func (c *Config) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessWindowDays) * 24 * time.Hour
}

// HTTPTimeout returns HTTPTimeoutSeconds as a time.Duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// PerCandidateBudget returns PerCandidateBudgetSec as a time.Duration.
func (c *Config) PerCandidateBudget() time.Duration {
	return time.Duration(c.PerCandidateBudgetSec) * time.Second
}

// MinIntercallSpacing returns MinIntercallSpacingMS as a time.Duration. When
// unset and no token is configured, it defaults to GitHub's unauthenticated
// cadence (one call per minute) per spec.md §6.
func (c *Config) MinIntercallSpacing() time.Duration {
	if c.MinIntercallSpacingMS == 0 && c.GitHubToken == "" {
		return 60 * time.Second
	}
	return time.Duration(c.MinIntercallSpacingMS) * time.Millisecond
}
