package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	d := Default()
	if d.FreshnessWindowDays != 30 || d.WorkerConcurrency != 8 || d.PerUserRepoCap != 50 ||
		d.HTTPTimeoutSeconds != 30 || d.PerCandidateBudgetSec != 600 || d.MinIntercallSpacingMS != 720 {
		t.Errorf("defaults drifted from spec: %+v", d)
	}
}

func TestLoadWithNoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WorkerConcurrency != 8 {
		t.Errorf("expected default worker_concurrency=8, got %d", cfg.WorkerConcurrency)
	}
}

func TestLoadRejectsUnknownYAMLKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("worker_concurrency: 4\nnot_a_real_option: true\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error for an unknown YAML key")
	}
	if !errors.Is(err, ErrUnknownOption) {
		t.Errorf("expected ErrUnknownOption, got %v", err)
	}
}

func TestLoadAppliesYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("worker_concurrency: 3\nseed_orgs: [\"acme\"]\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WorkerConcurrency != 3 {
		t.Errorf("expected worker_concurrency=3 from file, got %d", cfg.WorkerConcurrency)
	}
	if len(cfg.SeedOrgs) != 1 || cfg.SeedOrgs[0] != "acme" {
		t.Errorf("expected seed_orgs=[acme], got %v", cfg.SeedOrgs)
	}
	if cfg.PerUserRepoCap != 50 {
		t.Errorf("expected per_user_repo_cap to keep its default of 50, got %d", cfg.PerUserRepoCap)
	}
}

func TestValidateRejectsNonPositiveWorkerConcurrency(t *testing.T) {
	cfg := Default()
	cfg.WorkerConcurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for worker_concurrency=0")
	}
}

func TestValidateRejectsInvalidLogFormat(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unsupported log_format")
	}
}

func TestMinIntercallSpacingDefaultsToUnauthenticatedCadenceWhenUnsetAndTokenless(t *testing.T) {
	cfg := Default()
	cfg.MinIntercallSpacingMS = 0
	cfg.GitHubToken = ""
	if got := cfg.MinIntercallSpacing(); got.Seconds() != 60 {
		t.Errorf("expected 60s unauthenticated cadence, got %v", got)
	}
}

func TestFreshnessWindowConvertsDaysToDuration(t *testing.T) {
	cfg := Default()
	cfg.FreshnessWindowDays = 30
	if got := cfg.FreshnessWindow().Hours(); got != 30*24 {
		t.Errorf("expected 720h, got %v", got)
	}
}
