package openai

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Preset describes an OpenAI-compatible provider endpoint.
type Preset struct {
	BaseURL      string
	KeyEnv       string // provider-specific API key variable, consulted after LLM_API_KEY
	DefaultModel string
	KeyOptional  bool
}

// Presets lists the providers selectable with LLM_PROVIDER.
var Presets = map[string]Preset{
	"openai": {
		BaseURL:      "https://api.openai.com/v1",
		KeyEnv:       "OPENAI_API_KEY",
		DefaultModel: "gpt-4o",
	},
	"openrouter": {
		BaseURL:      "https://openrouter.ai/api/v1",
		KeyEnv:       "OPENROUTER_API_KEY",
		DefaultModel: "google/gemini-2.5-flash",
	},
	"gemini": {
		BaseURL:      "https://generativelanguage.googleapis.com/v1beta/openai",
		KeyEnv:       "GEMINI_API_KEY",
		DefaultModel: "gemini-2.5-flash",
	},
	"anthropic": {
		BaseURL:      "https://api.anthropic.com/v1",
		KeyEnv:       "ANTHROPIC_API_KEY",
		DefaultModel: "claude-sonnet-4-20250514",
	},
	"ollama": {
		BaseURL:      "http://localhost:11434/v1",
		DefaultModel: "llama3.1",
		KeyOptional:  true,
	},
}

// Config holds OpenAI-compatible LLM configuration.
type Config struct {
	Provider    string   // Preset name (default: openai)
	APIKey      string   // API key for authentication
	BaseURL     string   // Base URL (default: the preset's)
	Model       string   // Model name (default: the preset's)
	Temperature *float32 // Response creativity 0.0-2.0 (nil = API default)
	MaxTokens   int      // Max tokens in response, 0 = no limit
	MaxRetries  int      // HTTP-level retry for transient errors only (default: 1)
}

// NewConfigFromEnv creates Config from environment variables.
// Expected env vars: LLM_PROVIDER, LLM_API_KEY (or the preset's key variable),
// LLM_BASE_URL, LLM_MODEL, LLM_TEMPERATURE, LLM_MAX_TOKENS, LLM_MAX_RETRIES
func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		Provider:    strings.ToLower(getEnvOrDefault("LLM_PROVIDER", "openai")),
		APIKey:      os.Getenv("LLM_API_KEY"),
		BaseURL:     os.Getenv("LLM_BASE_URL"),
		Model:       os.Getenv("LLM_MODEL"),
		Temperature: getEnvFloat32Ptr("LLM_TEMPERATURE"),
		MaxTokens:   getEnvIntOrDefault("LLM_MAX_TOKENS", 0),
		MaxRetries:  getEnvIntOrDefault("LLM_MAX_RETRIES", 1),
	}
	if preset, ok := Presets[config.Provider]; ok && config.APIKey == "" && preset.KeyEnv != "" {
		config.APIKey = os.Getenv(preset.KeyEnv)
	}
	config.ApplyPreset()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyPreset fills BaseURL and Model from the provider preset where unset.
func (c *Config) ApplyPreset() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	preset, ok := Presets[c.Provider]
	if !ok {
		return
	}
	if c.BaseURL == "" {
		c.BaseURL = preset.BaseURL
	}
	if c.Model == "" {
		c.Model = preset.DefaultModel
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	preset, ok := Presets[c.Provider]
	if !ok && c.BaseURL == "" {
		return fmt.Errorf("unknown LLM_PROVIDER %q and no LLM_BASE_URL set", c.Provider)
	}
	if c.APIKey == "" && !preset.KeyOptional {
		hint := "LLM_API_KEY"
		if preset.KeyEnv != "" {
			hint += " or " + preset.KeyEnv
		}
		return fmt.Errorf("%s is required. Set it in .env or environment", hint)
	}
	if c.Model == "" {
		return fmt.Errorf("LLM_MODEL cannot be empty")
	}
	if c.Temperature != nil && (*c.Temperature < 0.0 || *c.Temperature > 2.0) {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0.0 and 2.0, got %f", *c.Temperature)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES cannot be negative, got %d", c.MaxRetries)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvFloat32Ptr(key string) *float32 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			f := float32(parsed)
			return &f
		}
	}
	return nil
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}
