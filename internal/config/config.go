package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for ContractPilot
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Ollama     OllamaConfig     `mapstructure:"ollama"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Normalizer NormalizerConfig `mapstructure:"normalizer"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// OllamaConfig holds local LLM service configuration
type OllamaConfig struct {
	BaseURL        string   `mapstructure:"base_url"`
	Models         []string `mapstructure:"models"`
	DefaultModel   string   `mapstructure:"default_model"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// UploadConfig holds file upload validation configuration
type UploadConfig struct {
	MaxSizeMB         int      `mapstructure:"max_size_mb"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// ChatConfig holds conversational assistant configuration
type ChatConfig struct {
	SuggestionMaxLength  int `mapstructure:"suggestion_max_length"`
	SuggestionDebounceMS int `mapstructure:"suggestion_debounce_ms"`
}

// NormalizerConfig holds table validation configuration. An empty column list
// falls back to the canonical purchase-order set.
type NormalizerConfig struct {
	RequiredColumns []string `mapstructure:"required_columns"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("CONTRACTPILOT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.models", []string{"qwen:7b"})
	v.SetDefault("ollama.default_model", "qwen:7b")
	v.SetDefault("ollama.timeout_seconds", 120)

	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("upload.allowed_extensions", []string{".xlsx", ".xls", ".csv"})

	v.SetDefault("chat.suggestion_max_length", 120)
	v.SetDefault("chat.suggestion_debounce_ms", 300)

	v.SetDefault("normalizer.required_columns", []string{})
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MaxUploadBytes returns the upload size ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Upload.MaxSizeMB) << 20
}
