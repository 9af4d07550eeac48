package config

import (
	"os"
	"path/filepath"
	"testing"

	"slotflow/models"
)

// writeTempConfig writes content to a config file in a temp dir and returns
// its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `slotflow:
  name: "TestApp"
  version: "1.0"
budgets:
  Týdenní: 5000
deposit_types: ["Vklady"]
export:
  filename: out.xlsx
  include_aggregate: true
server:
  rate_limit:
    requests_per_second: 2
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Slotflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Slotflow.Name)
	}
	budgets := cfg.BudgetConfig()
	if budgets.For(models.SlotTypeWeekly) != 5000 {
		t.Errorf("weekly budget not overridden: %v", budgets.For(models.SlotTypeWeekly))
	}
	if budgets.For(models.SlotTypeHourly) != models.DefaultBudget {
		t.Errorf("hourly budget lost its default: %v", budgets.For(models.SlotTypeHourly))
	}
	if len(cfg.DepositTypes) != 1 || cfg.DepositTypes[0] != "Vklady" {
		t.Errorf("unexpected deposit types: %v", cfg.DepositTypes)
	}
	if !cfg.Export.IncludeAggregate || cfg.Export.SheetName != "Sheet1" {
		t.Errorf("unexpected export config: %+v", cfg.Export)
	}
	if cfg.Server.RateLimit.RequestsPerSecond != 2 || cfg.Server.RateLimit.Burst != 10 {
		t.Errorf("unexpected rate limit: %+v", cfg.Server.RateLimit)
	}
}

func TestLoadConfigRejectsNegativeBudget(t *testing.T) {
	path := writeTempConfig(t, "budgets:\n  Hodinové: -1\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected negative budget to fail validation")
	}
}

func TestLoadConfigRejectsBadFilename(t *testing.T) {
	path := writeTempConfig(t, "export:\n  filename: report.csv\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected non-xlsx filename to fail validation")
	}
}

func TestLoadConfigS3RequiresBucket(t *testing.T) {
	t.Setenv("S3_BUCKET", "")
	t.Setenv("AWS_REGION", "")
	path := writeTempConfig(t, "storage:\n  s3:\n    enabled: true\n    region: eu-central-1\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected missing bucket to fail validation")
	}

	t.Setenv("S3_BUCKET", "slot-reports")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Storage.S3.Bucket != "slot-reports" {
		t.Errorf("bucket not taken from env: %q", cfg.Storage.S3.Bucket)
	}
}

func TestKafkaBrokersFromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	path := writeTempConfig(t, "notify:\n  kafka:\n    enabled: true\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Notify.Kafka.Brokers) != 2 || cfg.Notify.Kafka.Brokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.Notify.Kafka.Brokers)
	}
}

func TestLoadConfigOrDefault(t *testing.T) {
	t.Setenv("APP_ENV", "")
	missing := filepath.Join(t.TempDir(), "missing.yml")

	cfg, err := LoadConfigOrDefault(missing)
	if err != nil {
		t.Fatalf("LoadConfigOrDefault: %v", err)
	}
	if cfg.Export.Filename != "investice_ai_doporuceni_v41.xlsx" {
		t.Errorf("unexpected default filename: %s", cfg.Export.Filename)
	}
	if len(cfg.Budgets) != len(models.SlotTypes()) {
		t.Errorf("unexpected default budgets: %v", cfg.Budgets)
	}

	t.Setenv("APP_ENV", "prod")
	if _, err := LoadConfigOrDefault(missing); err == nil {
		t.Fatalf("production must not fall back to defaults")
	}
}

func TestResolveEnvSpecificPath(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "config.yml")
	staging := filepath.Join(dir, "config.staging.yml")
	if err := os.WriteFile(staging, []byte("slotflow:\n  name: staged\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("APP_ENV", "stage")
	if got := resolveEnvSpecificPath("", def, envConfigPaths(def)); got != staging {
		t.Fatalf("expected staging path, got %s", got)
	}
	if got := resolveEnvSpecificPath("/etc/other.yml", def, envConfigPaths(def)); got != "/etc/other.yml" {
		t.Fatalf("explicit path should be kept, got %s", got)
	}

	t.Setenv("APP_ENV", "")
	if got := resolveEnvSpecificPath("", def, envConfigPaths(def)); got != def {
		t.Fatalf("expected default path, got %s", got)
	}
}

func TestIsValidS3Bucket(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"valid-bucket", true},
		{"Invalid", false},
		{"ab", false},
		{"my..bucket", false},
	}
	for _, c := range cases {
		if got := isValidS3Bucket(c.name); got != c.valid {
			t.Errorf("isValidS3Bucket(%q) = %v, want %v", c.name, got, c.valid)
		}
	}
}
