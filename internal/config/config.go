package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Gmail     GmailConfig     `yaml:"gmail"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Redis     RedisConfig     `yaml:"redis"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// AnalyticsConfig holds the vendor analytics queue API configuration
type AnalyticsConfig struct {
	BaseURL             string `yaml:"base_url"`
	APIKey              string `yaml:"api_key"`
	QueueDays           int    `yaml:"queue_days"`
	ModelID             string `yaml:"model_id"`
	ModelName           string `yaml:"model_name"`
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	MaxWaitSeconds      int    `yaml:"max_wait_seconds"`
}

// Timeout returns the per-request timeout as a duration
func (c AnalyticsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollInterval returns the queue status polling interval as a duration
func (c AnalyticsConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// MaxWait returns the hard deadline for a queued report to succeed
func (c AnalyticsConfig) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitSeconds) * time.Second
}

// GmailConfig holds the mailbox attachment fetcher configuration.
// The refresh token is a long-lived credential obtained once out of band.
type GmailConfig struct {
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	RefreshToken   string `yaml:"refresh_token"`
	SubjectFilter  string `yaml:"subject_filter"`
	LookbackDays   int    `yaml:"lookback_days"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c GmailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SnapshotConfig holds snapshot persistence configuration.
// Type "local" writes the CSV next to the binary; "s3" shares one
// object between replicas.
type SnapshotConfig struct {
	Type       string `yaml:"type"`
	LocalPath  string `yaml:"local_path"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Key      string `yaml:"s3_key"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c SnapshotConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// IngestConfig holds the background refresh scheduler configuration
type IngestConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Source          string `yaml:"source"` // "queue" or "mailbox"
	IntervalMinutes int    `yaml:"interval_minutes"`
	LockTTLSeconds  int    `yaml:"lock_ttl_seconds"`
}

// Interval returns the scheduled refresh interval as a duration
func (c IngestConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// LockTTL returns the distributed lock TTL as a duration
func (c IngestConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// DashboardConfig holds dashboard query defaults
type DashboardConfig struct {
	DefaultTopN int      `yaml:"default_top_n"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// RedisConfig holds the optional Redis connection used for the
// ingestion lock. Empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Load reads and parses the configuration file. A missing file is not an
// error: the service can run entirely from environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Analytics.BaseURL == "" {
		cfg.Analytics.BaseURL = "https://analytics.mn/rest/model"
	}
	if cfg.Analytics.QueueDays == 0 {
		cfg.Analytics.QueueDays = 45
	}
	if cfg.Analytics.ModelID == "" {
		cfg.Analytics.ModelID = "907"
	}
	if cfg.Analytics.ModelName == "" {
		cfg.Analytics.ModelName = "Max Learning"
	}
	if cfg.Analytics.TimeoutSeconds == 0 {
		cfg.Analytics.TimeoutSeconds = 60
	}
	if cfg.Analytics.PollIntervalSeconds == 0 {
		cfg.Analytics.PollIntervalSeconds = 30
	}
	if cfg.Analytics.MaxWaitSeconds == 0 {
		cfg.Analytics.MaxWaitSeconds = 1200
	}
	if cfg.Gmail.LookbackDays == 0 {
		cfg.Gmail.LookbackDays = 7
	}
	if cfg.Gmail.TimeoutSeconds == 0 {
		cfg.Gmail.TimeoutSeconds = 30
	}
	if cfg.Snapshot.Type == "" {
		cfg.Snapshot.Type = "local"
	}
	if cfg.Snapshot.LocalPath == "" {
		cfg.Snapshot.LocalPath = "data/domain_data.csv"
	}
	if cfg.Snapshot.S3Key == "" {
		cfg.Snapshot.S3Key = "snapshots/domain_data.csv"
	}
	if cfg.Snapshot.AWSRegion == "" {
		cfg.Snapshot.AWSRegion = "us-west-2"
	}
	if cfg.Ingest.Source == "" {
		cfg.Ingest.Source = "queue"
	}
	if cfg.Ingest.IntervalMinutes == 0 {
		cfg.Ingest.IntervalMinutes = 1440
	}
	if cfg.Ingest.LockTTLSeconds == 0 {
		cfg.Ingest.LockTTLSeconds = 1800
	}
	if cfg.Dashboard.DefaultTopN == 0 {
		cfg.Dashboard.DefaultTopN = 5
	}
	if len(cfg.Dashboard.CORSOrigins) == 0 {
		cfg.Dashboard.CORSOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so credentials can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if apiKey := os.Getenv("ANALYTICS_API_KEY"); apiKey != "" {
		cfg.Analytics.APIKey = apiKey
	}
	// Legacy name accepted for the same credential
	if cfg.Analytics.APIKey == "" {
		cfg.Analytics.APIKey = os.Getenv("ANALYTICS_BEARER_TOKEN")
	}
	if baseURL := os.Getenv("ANALYTICS_BASE_URL"); baseURL != "" {
		cfg.Analytics.BaseURL = baseURL
	}
	if days := os.Getenv("ANALYTICS_QUEUE_DAYS"); days != "" {
		if n, err := strconv.Atoi(days); err == nil && n > 0 {
			cfg.Analytics.QueueDays = n
		}
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.Gmail.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.Gmail.ClientSecret = v
	}
	if v := os.Getenv("GMAIL_REFRESH_TOKEN"); v != "" {
		cfg.Gmail.RefreshToken = v
	}
	if v := os.Getenv("GMAIL_SUBJECT_FILTER"); v != "" {
		cfg.Gmail.SubjectFilter = v
	}
	if v := os.Getenv("SNAPSHOT_PATH"); v != "" {
		cfg.Snapshot.LocalPath = v
	}
	if v := os.Getenv("SNAPSHOT_S3_BUCKET"); v != "" {
		cfg.Snapshot.S3Bucket = v
		cfg.Snapshot.Type = "s3"
	}
	if v := os.Getenv("INGEST_SOURCE"); v != "" {
		cfg.Ingest.Source = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}

	return cfg, nil
}
