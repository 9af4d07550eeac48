package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"slotflow/models"
)

// DefaultPath is where LoadConfigOrDefault looks when no path is given.
const DefaultPath = "config/config.yml"

type Config struct {
	Slotflow     SlotflowConfig     `yaml:"slotflow"`
	Budgets      map[string]float64 `yaml:"budgets"`
	DepositTypes []string           `yaml:"deposit_types"`
	Columns      ColumnsConfig      `yaml:"columns"`
	Export       ExportConfig       `yaml:"export"`
	Storage      StorageConfig      `yaml:"storage"`
	Notify       NotifyConfig       `yaml:"notify"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type SlotflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ColumnsConfig adds header aliases on top of the built-in English and
// Czech names. Keys are field names: date, slot_id, source, slot_type,
// mining_subject, type, deposited_amount, profit_loss, total_amount,
// max_loss.
type ColumnsConfig struct {
	Aliases map[string][]string `yaml:"aliases"`
}

type ExportConfig struct {
	Filename         string        `yaml:"filename"`
	SheetName        string        `yaml:"sheet_name"`
	IncludeAggregate bool          `yaml:"include_aggregate"`
	Parquet          ParquetConfig `yaml:"parquet"`
}

type ParquetConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Compression string `yaml:"compression"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type NotifyConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

type ServerConfig struct {
	Address        string          `yaml:"address"`
	MaxUploadBytes int64           `yaml:"max_upload_bytes"`
	LogHistory     int             `yaml:"log_history"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Slotflow:     SlotflowConfig{Name: "slotflow", Version: "4.1"},
		Budgets:      models.DefaultBudgets(),
		DepositTypes: []string{"Deposit", "Vklady"},
		Export: ExportConfig{
			Filename:  "investice_ai_doporuceni_v41.xlsx",
			SheetName: "Sheet1",
			Parquet:   ParquetConfig{Compression: "snappy"},
		},
		Notify: NotifyConfig{Kafka: KafkaConfig{Topic: "slotflow.reports", WriteTimeout: 10 * time.Second}},
		Metrics: MetricsConfig{
			CloudWatch: CloudWatchConfig{Namespace: "Slotflow"},
		},
		Server: ServerConfig{
			Address:        ":8080",
			MaxUploadBytes: 32 << 20,
			LogHistory:     200,
			RateLimit:      RateLimitConfig{RequestsPerSecond: 5, Burst: 10},
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

// LoadConfig reads the YAML file at path over the defaults, applies
// environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, DefaultPath, envConfigPaths(DefaultPath))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	// budgets from the file replace defaults per key, not the whole map
	defaults := cfg.Budgets
	cfg.Budgets = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.Budgets = models.BudgetConfig(defaults).Merge(cfg.Budgets)

	return finish(cfg)
}

// LoadConfigOrDefault behaves like LoadConfig but falls back to Default when
// the file does not exist outside production-like environments.
func LoadConfigOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) && !IsProductionLike(AppEnvironment()) {
		return finish(Default())
	}
	return cfg, err
}

func finish(cfg *Config) (*Config, error) {
	applyEnv(cfg)
	cfg.Storage.S3.Bucket = strings.TrimSpace(cfg.Storage.S3.Bucket)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if cfg.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			cfg.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			cfg.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			cfg.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			cfg.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		cfg.Notify.Kafka.Brokers = brokers
	}
}

// BudgetConfig returns the configured budgets as a models.BudgetConfig.
func (c *Config) BudgetConfig() models.BudgetConfig {
	return models.BudgetConfig(c.Budgets).Merge(nil)
}

func validateConfig(cfg *Config) error {
	if cfg.Slotflow.Name == "" {
		return fmt.Errorf("slotflow.name is required")
	}
	if err := models.BudgetConfig(cfg.Budgets).Validate(); err != nil {
		return fmt.Errorf("budgets: %w", err)
	}
	if len(cfg.DepositTypes) == 0 {
		return fmt.Errorf("deposit_types must not be empty")
	}
	if strings.TrimSpace(cfg.Export.Filename) == "" {
		return fmt.Errorf("export.filename is required")
	}
	if ext := strings.ToLower(filepath.Ext(cfg.Export.Filename)); ext != ".xlsx" {
		return fmt.Errorf("export.filename must end in .xlsx, got %q", cfg.Export.Filename)
	}

	switch cfg.Export.Parquet.Compression {
	case "", "snappy", "gzip", "uncompressed":
	default:
		return fmt.Errorf("export.parquet.compression '%s' is not supported", cfg.Export.Parquet.Compression)
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	if cfg.Notify.Kafka.Enabled {
		if len(cfg.Notify.Kafka.Brokers) == 0 {
			return fmt.Errorf("notify.kafka.brokers is required when Kafka is enabled")
		}
		if cfg.Notify.Kafka.Topic == "" {
			return fmt.Errorf("notify.kafka.topic is required when Kafka is enabled")
		}
	}

	if cfg.Server.RateLimit.RequestsPerSecond < 0 || cfg.Server.RateLimit.Burst < 0 {
		return fmt.Errorf("server.rate_limit values must not be negative")
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
