// Package config loads the CIR engine's Config from layered sources —
// defaults, an optional YAML file, then environment variables — and
// validates the result before the Orchestrator ever sees it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// LLMConfig holds the transport settings for the LLM client.
type LLMConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Model   string        `yaml:"model" validate:"required"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout" validate:"min=1"`
}

// Config is the fully resolved configuration for one CIR engine process.
type Config struct {
	WorkspacePath string    `yaml:"workspace_path" validate:"required,dir"`
	Interpreter   string    `yaml:"interpreter" validate:"required"`
	SourceExt     string    `yaml:"source_ext" validate:"required"`
	LLM           LLMConfig `yaml:"llm" validate:"required"`
	Port          int       `yaml:"port" validate:"min=1"`
	OTelEndpoint  string    `yaml:"otel_endpoint"`
	LogFormat     string    `yaml:"log_format" validate:"oneof=text json"`
}

// Defaults returns the baseline Config every loaded value is layered on
// top of.
func Defaults() Config {
	return Config{
		WorkspacePath: ".",
		Interpreter:   "pytest",
		SourceExt:     ".py",
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
		Port:      8080,
		LogFormat: "text",
	}
}

// Load builds a Config from defaults, an optional YAML file at path (if
// path is non-empty and exists), and environment variables, in that
// increasing order of priority, then validates the result.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CIR_WORKSPACE_PATH"); v != "" {
		cfg.WorkspacePath = v
	}
	if v := os.Getenv("CIR_INTERPRETER"); v != "" {
		cfg.Interpreter = v
	}
	if v := os.Getenv("CIR_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("CIR_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("CIR_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("CIR_LLM_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.LLM.Timeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("CIR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("CIR_OTEL_ENDPOINT"); v != "" {
		cfg.OTelEndpoint = v
	}
	if v := os.Getenv("CIR_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

var validate = validator.New()

// Validate runs struct-tag validation over the resolved Config, returning
// an aggregated error naming every violated field.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// APIKeyPresent reports whether an LLM API key is configured, for logging
// a boolean instead of the key itself.
func (c Config) APIKeyPresent() bool {
	return c.LLM.APIKey != ""
}
