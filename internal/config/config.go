package config

import (
	"errors"
	"time"
)

// Config is the application configuration root.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	AI       AIConfig       `mapstructure:"ai"`
	Render   RenderConfig   `mapstructure:"render"`
	Publish  PublishConfig  `mapstructure:"publish"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AIConfig holds server-side LLM defaults. API keys are supplied per
// request (BYOK) and are never read from configuration.
type AIConfig struct {
	Provider string          `mapstructure:"provider"` // default when the request omits one
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig LLM sampling parameters.
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// RenderConfig text-to-video backend settings (kie.ai).
type RenderConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	SubmitDelay  time.Duration `mapstructure:"submit_delay"`  // pause between scene submissions
	PollInterval time.Duration `mapstructure:"poll_interval"` // per poll attempt
	PollAttempts int           `mapstructure:"poll_attempts"`
}

// PublishConfig video hosting backend settings (Mux).
type PublishConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollAttempts int           `mapstructure:"poll_attempts"`
}

// PipelineConfig orchestrator settings.
type PipelineConfig struct {
	SceneSeconds    int           `mapstructure:"scene_seconds"`    // fixed per-scene length
	Retention       time.Duration `mapstructure:"retention"`        // how long finished jobs are kept
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"` // sweep period
}

// LogConfig zerolog settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	if c.Pipeline.SceneSeconds <= 0 {
		return errors.New("pipeline.scene_seconds must be positive")
	}
	if c.Render.PollAttempts <= 0 || c.Publish.PollAttempts <= 0 {
		return errors.New("poll_attempts must be positive")
	}

	return nil
}
