// Package config handles configuration loading for the insiders pipeline.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration.
type Config struct {
	EDGAR    EDGARConfig    `mapstructure:"edgar"    yaml:"edgar"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Queue    QueueConfig    `mapstructure:"queue"    yaml:"queue"`
	Notify   NotifyConfig   `mapstructure:"notify"   yaml:"notify"`
	Store    StoreConfig    `mapstructure:"store"    yaml:"store"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// EDGARConfig holds scraper settings.
type EDGARConfig struct {
	BaseURL        string        `mapstructure:"base_url"        yaml:"base_url"` // e.g., "https://www.sec.gov"
	UserAgent      string        `mapstructure:"user_agent"      yaml:"user_agent"`
	PageSize       int           `mapstructure:"page_size"       yaml:"page_size"` // browse-edgar count: 10, 20, 40, 80, 100
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	StartYear      string        `mapstructure:"start_year"      yaml:"start_year"` // rows filed in this year and older stop pagination
	MaxPages       int           `mapstructure:"max_pages"       yaml:"max_pages"`
	RateLimit      int           `mapstructure:"rate_limit"      yaml:"rate_limit"` // requests per second
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"  yaml:"max_body_bytes"`
	States         []string      `mapstructure:"states"          yaml:"states"`
}

// PipelineConfig holds orchestrator settings.
type PipelineConfig struct {
	ChunkSize        int           `mapstructure:"chunk_size"        yaml:"chunk_size"`
	SubChunkSize     int           `mapstructure:"sub_chunk_size"    yaml:"sub_chunk_size"`
	DispatchDelay    time.Duration `mapstructure:"dispatch_delay"    yaml:"dispatch_delay"`
	BatchTimeout     time.Duration `mapstructure:"batch_timeout"     yaml:"batch_timeout"`
	FixMode          bool          `mapstructure:"fix_mode"          yaml:"fix_mode"`
	ClusterThreshold float64       `mapstructure:"cluster_threshold" yaml:"cluster_threshold"`
	FetchOwners      bool          `mapstructure:"fetch_owners"      yaml:"fetch_owners"`
}

// QueueConfig holds NATS JetStream settings for chunk dispatch.
type QueueConfig struct {
	URL             string `mapstructure:"url"              yaml:"url"`
	Token           string `mapstructure:"token"            yaml:"token"`
	Stream          string `mapstructure:"stream"           yaml:"stream"`
	Consumer        string `mapstructure:"consumer"         yaml:"consumer"`
	DispatchSubject string `mapstructure:"dispatch_subject" yaml:"dispatch_subject"`
	RetrySubject    string `mapstructure:"retry_subject"    yaml:"retry_subject"`
}

// NotifyConfig holds alert publishing settings.
type NotifyConfig struct {
	AlertSubject string `mapstructure:"alert_subject" yaml:"alert_subject"`
	FoundSubject string `mapstructure:"found_subject" yaml:"found_subject"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend    string        `mapstructure:"backend"    yaml:"backend"` // "bolt" or "cloud"
	BoltPath   string        `mapstructure:"bolt_path"  yaml:"bolt_path"`
	ProjectID  string        `mapstructure:"project_id" yaml:"project_id"`
	Bucket     string        `mapstructure:"bucket"     yaml:"bucket"`
	Collection string        `mapstructure:"collection" yaml:"collection"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"  yaml:"cache_ttl"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"` // empty disables the endpoint
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.insiders/config.yaml (home directory)
//  3. /etc/insiders/config.yaml (system)
//
// Environment variables override config file values.
// Format: INSIDERS_<SECTION>_<KEY>, e.g., INSIDERS_QUEUE_URL
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".insiders"))
	v.AddConfigPath("/etc/insiders")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("INSIDERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// EDGAR defaults (SEC fair access: 10 req/s, declared User-Agent)
	v.SetDefault("edgar.base_url", "https://www.sec.gov")
	v.SetDefault("edgar.user_agent", "insiders/1.0 (ops@example.com)")
	v.SetDefault("edgar.page_size", 40)
	v.SetDefault("edgar.request_timeout", 10*time.Second)
	v.SetDefault("edgar.start_year", "2015")
	v.SetDefault("edgar.max_pages", 50)
	v.SetDefault("edgar.rate_limit", 10)
	v.SetDefault("edgar.max_body_bytes", 16<<20)
	v.SetDefault("edgar.states", DefaultStates)

	// Pipeline defaults
	v.SetDefault("pipeline.chunk_size", 100)
	v.SetDefault("pipeline.sub_chunk_size", 20)
	v.SetDefault("pipeline.dispatch_delay", 500*time.Millisecond)
	v.SetDefault("pipeline.batch_timeout", 60*time.Second)
	v.SetDefault("pipeline.fix_mode", false)
	v.SetDefault("pipeline.cluster_threshold", 3.0)
	v.SetDefault("pipeline.fetch_owners", false)

	// Queue defaults
	v.SetDefault("queue.url", "nats://127.0.0.1:4222")
	v.SetDefault("queue.stream", "INSIDERS")
	v.SetDefault("queue.consumer", "insiders-consumer")
	v.SetDefault("queue.dispatch_subject", "insiders.chunks")
	v.SetDefault("queue.retry_subject", "insiders.chunks.retry")

	// Notify defaults
	v.SetDefault("notify.alert_subject", "insiders.alerts")
	v.SetDefault("notify.found_subject", "insiders.found")

	// Store defaults
	v.SetDefault("store.backend", "bolt")
	v.SetDefault("store.bolt_path", filepath.Join(homeDir(), ".insiders", "insiders.db"))
	v.SetDefault("store.collection", "analytics")
	v.SetDefault("store.cache_ttl", 30*time.Minute)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if token := os.Getenv("INSIDERS_QUEUE_TOKEN"); token != "" {
		cfg.Queue.Token = token
	}
	if project := os.Getenv("GOOGLE_CLOUD_PROJECT"); project != "" && cfg.Store.ProjectID == "" {
		cfg.Store.ProjectID = project
	}
}

var validPageSizes = []int{10, 20, 40, 80, 100}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if c.EDGAR.BaseURL == "" {
		return fmt.Errorf("edgar.base_url must be set")
	}
	if c.EDGAR.UserAgent == "" {
		return fmt.Errorf("edgar.user_agent must be set (SEC rejects anonymous clients)")
	}
	if !slices.Contains(validPageSizes, c.EDGAR.PageSize) {
		return fmt.Errorf("edgar.page_size must be one of %v, got %d", validPageSizes, c.EDGAR.PageSize)
	}
	if c.EDGAR.RequestTimeout <= 0 {
		return fmt.Errorf("edgar.request_timeout must be positive")
	}
	if c.Pipeline.ChunkSize < 1 || c.Pipeline.ChunkSize > 100 {
		return fmt.Errorf("pipeline.chunk_size must be between 1 and 100, got %d", c.Pipeline.ChunkSize)
	}
	if c.Pipeline.SubChunkSize < 1 {
		return fmt.Errorf("pipeline.sub_chunk_size must be positive")
	}
	if c.Pipeline.BatchTimeout <= 0 {
		return fmt.Errorf("pipeline.batch_timeout must be positive")
	}
	switch c.Store.Backend {
	case "bolt":
		if c.Store.BoltPath == "" {
			return fmt.Errorf("store.bolt_path must be set for the bolt backend")
		}
	case "cloud":
		if c.Store.ProjectID == "" || c.Store.Bucket == "" {
			return fmt.Errorf("store.project_id and store.bucket must be set for the cloud backend")
		}
	default:
		return fmt.Errorf("store.backend must be \"bolt\" or \"cloud\", got %q", c.Store.Backend)
	}
	return nil
}

// Marshal renders the configuration as YAML with secrets masked.
func Marshal(cfg *Config) ([]byte, error) {
	out := *cfg
	redactSecrets(&out)
	return yaml.Marshal(&out)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
