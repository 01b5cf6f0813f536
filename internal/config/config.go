package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/llm-anomaly-triage/")
	v.AddConfigPath("$HOME/.llm-anomaly-triage")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("ANOMALY_TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults
	v.SetDefault("llm.provider", "bedrock")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.max_tokens", 4000)
	v.SetDefault("bedrock.temperature", 0.0)
	v.SetDefault("bedrock.top_p", 0.9)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 4000)
	v.SetDefault("gemini.temperature", 0.0)
	v.SetDefault("gemini.top_p", 0.9)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 4000)
	v.SetDefault("openai.temperature", 0.0)
	v.SetDefault("openai.top_p", 0.9)

	// Mail source defaults
	v.SetDefault("mail.source", "gmail")
	v.SetDefault("mail.fetch_limit", 15)
	v.SetDefault("gmail.credentials_file", "/etc/llm-anomaly-triage/credentials.json")
	v.SetDefault("gmail.query", `in:inbox -label:fetched (subject:"Cost anomaly" OR from:budgets@costalerts.amazonaws.com OR from:freetier@costalerts.amazonaws.com)`)
	v.SetDefault("gmail.processed_label", "fetched")
	v.SetDefault("smtp.listen_address", "0.0.0.0:10025")
	v.SetDefault("smtp.max_queue", 256)

	// Pipeline defaults
	v.SetDefault("pipeline.max_body_size", 8000)
	v.SetDefault("pipeline.max_concurrent_llm", 4)
	v.SetDefault("pipeline.max_batch_concurrency", 2)
	v.SetDefault("pipeline.max_retries", 3)
	v.SetDefault("pipeline.initial_backoff", "500ms")
	v.SetDefault("pipeline.max_backoff", "10s")
	v.SetDefault("pipeline.poll_interval", "5m")

	// Account registry defaults
	v.SetDefault("accounts.registry_file", "./configs/accounts.yaml")

	// Store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.processed_ttl", "720h")
	v.SetDefault("store.cleanup_frequency", "1h")
	v.SetDefault("store.sqlite_path", "/data/anomaly_triage.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/anomaly_triage")

	// Export defaults
	v.SetDefault("export.enabled", true)
	v.SetDefault("export.daily_file", "./daily_anomalies.csv")
	v.SetDefault("export.master_file", "./master_anomalies.csv")
	v.SetDefault("export.contacts_file", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
