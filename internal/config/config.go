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
	v.AddConfigPath("/etc/dealer-chat/")
	v.AddConfigPath("$HOME/.dealer-chat")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("DEALER_CHAT")
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
	v.SetDefault("llm.provider", "openai")

	// Server defaults
	v.SetDefault("server.frontend_type", "http")
	v.SetDefault("server.listen_address", "0.0.0.0:8080")
	v.SetDefault("server.cors_origins", []string{"*"})

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o")
	v.SetDefault("openai.max_tokens", 4096)
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("openai.top_p", 0.9)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-5-sonnet-20241022-v2:0")
	v.SetDefault("bedrock.max_tokens", 4096)
	v.SetDefault("bedrock.temperature", 0.7)
	v.SetDefault("bedrock.top_p", 0.9)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-pro")
	v.SetDefault("gemini.max_tokens", 4096)
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.top_p", 0.9)

	// Abuse guard defaults
	v.SetDefault("abuse.max_messages_per_minute", 5)
	v.SetDefault("abuse.max_repeated_messages", 3)
	v.SetDefault("abuse.min_message_length", 3)
	v.SetDefault("abuse.block_duration", "30m")
	v.SetDefault("abuse.violations_before_block", 3)
	v.SetDefault("abuse.sweep_interval", "5m")
	v.SetDefault("abuse.sender_retention", "1h")
	v.SetDefault("abuse.fingerprint_ttl", "24h")
	v.SetDefault("abuse.violation_retention", "24h")

	// Template defaults. Categories listed here are skipped when the
	// message mentions a specific catalog model, so the LLM can answer
	// with model-specific information instead of a generic canned reply.
	v.SetDefault("templates.model_specific_skip", []string{"modelos", "precios_generales", "autonomia"})

	// Pipeline defaults
	v.SetDefault("pipeline.history_limit", 10)
	v.SetDefault("pipeline.capture_message_threshold", 2)
	v.SetDefault("pipeline.followup_message_limit", 5)

	// Lead store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.sqlite_path", "/data/dealer_chat.db")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/dealer_chat")

	// Notifier defaults
	v.SetDefault("notifier.type", "none")
	v.SetDefault("notifier.webhook_url", "")
	v.SetDefault("notifier.webhook_api_key", "")
	v.SetDefault("notifier.webhook_timeout", "10s")
	v.SetDefault("notifier.smtp_address", "")
	v.SetDefault("notifier.smtp_username", "")
	v.SetDefault("notifier.smtp_password", "")
	v.SetDefault("notifier.smtp_from", "")
	v.SetDefault("notifier.smtp_to", []string{})

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
