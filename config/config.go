package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	RevealIncremental = "incremental"
	RevealBatch       = "batch"

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config stores all configuration of the application.
type Config struct {
	BackendURL     string        `mapstructure:"backend_url"`
	StepDelay      time.Duration `mapstructure:"step_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_initial_delay"`
	Reveal         string        `mapstructure:"reveal"`
	PlaceholderURL string        `mapstructure:"placeholder_url"`

	Port            int           `mapstructure:"port"`
	Provider        string        `mapstructure:"provider"`
	LlmBaseURL      string        `mapstructure:"llm_base_url"`
	LlmAPIKey       string        `mapstructure:"groq_api_key"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	ModelName       string        `mapstructure:"model_name"`
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	ImageModel      string        `mapstructure:"image_model"`
	ImageSize       string        `mapstructure:"image_size"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	ImageCacheTTL   time.Duration `mapstructure:"image_cache_ttl"`
	ImageTimeout    time.Duration `mapstructure:"image_timeout"`
	TellmURL        string        `mapstructure:"tellm_url"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		BackendURL:     "https://sprojvln-flask-ai-chef.hf.space/generate",
		StepDelay:      time.Second,
		RequestTimeout: 30 * time.Second,
		MaxAttempts:    3,
		RetryDelay:     500 * time.Millisecond,
		Reveal:         RevealIncremental,
		PlaceholderURL: "https://via.placeholder.com/300",

		Port:          7860,
		Provider:      ProviderOpenAI,
		LlmBaseURL:    "https://api.groq.com/openai/v1",
		ModelName:     "llama-3.3-70b-versatile",
		ImageModel:    "dall-e-2",
		ImageSize:     "512x512",
		ImageCacheTTL: 50 * time.Minute,
		ImageTimeout:  60 * time.Second,
	}
}

// LoadConfig reads configuration from an optional file and the environment.
// An empty configPath searches ./chef.yaml and ~/.chef/chef.yaml.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	setDefaults(v, config)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("chef")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".chef"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("CHEF")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.BindEnv("openai_api_key", "CHEF_OPENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("groq_api_key", "CHEF_GROQ_API_KEY", "GROQ_API_KEY")
	v.BindEnv("anthropic_api_key", "CHEF_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	v.BindEnv("port", "CHEF_PORT", "PORT")

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("backend_url", c.BackendURL)
	v.SetDefault("step_delay", c.StepDelay)
	v.SetDefault("request_timeout", c.RequestTimeout)
	v.SetDefault("max_attempts", c.MaxAttempts)
	v.SetDefault("retry_initial_delay", c.RetryDelay)
	v.SetDefault("reveal", c.Reveal)
	v.SetDefault("placeholder_url", c.PlaceholderURL)
	v.SetDefault("port", c.Port)
	v.SetDefault("provider", c.Provider)
	v.SetDefault("llm_base_url", c.LlmBaseURL)
	v.SetDefault("groq_api_key", "")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("model_name", c.ModelName)
	v.SetDefault("openai_api_key", "")
	v.SetDefault("image_model", c.ImageModel)
	v.SetDefault("image_size", c.ImageSize)
	v.SetDefault("redis_addr", "")
	v.SetDefault("image_cache_ttl", c.ImageCacheTTL)
	v.SetDefault("image_timeout", c.ImageTimeout)
	v.SetDefault("tellm_url", "")
}

func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend_url is required")
	}
	if c.StepDelay < 0 {
		return fmt.Errorf("step_delay must not be negative, got %v", c.StepDelay)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.ImageTimeout < 0 {
		return fmt.Errorf("image_timeout must not be negative, got %v", c.ImageTimeout)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_initial_delay must not be negative, got %v", c.RetryDelay)
	}
	switch c.Reveal {
	case RevealIncremental, RevealBatch:
	default:
		return fmt.Errorf("unknown reveal mode %q", c.Reveal)
	}
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}
