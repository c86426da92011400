package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models focusline.yml.
type Config struct {
	Storage struct {
		Key string `yaml:"key"`
	} `yaml:"storage"`
	Assistant struct {
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"assistant"`
	Retrospective struct {
		// Window is "friday" (default) or "friday-to-sunday".
		Window string `yaml:"window"`
	} `yaml:"retrospective"`
	Server struct {
		JWTSecret string `yaml:"jwt_secret"`
		APIKey    string `yaml:"api_key"`
	} `yaml:"server"`
	LogLevel string `yaml:"log_level"`
}

const (
	WindowFriday   = "friday"
	WindowToSunday = "friday-to-sunday"
)

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	cfg.Storage.Key = "weekly-plan"
	cfg.Assistant.BaseURL = "https://api.openai.com/v1"
	cfg.Assistant.Model = "gpt-4o-mini"
	cfg.Assistant.TimeoutSeconds = 30
	cfg.Retrospective.Window = WindowFriday
	cfg.LogLevel = "info"
	return &cfg
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "focusline.yml")
}

// Load reads config from the workspace, falling back to defaults when no
// file exists. Environment overrides are applied last so secrets can stay
// out of the file.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}
	cfg, err := FromYAML(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// FromYAML parses and validates config from raw YAML bytes. Unset fields
// take their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Storage.Key == "" {
		return fmt.Errorf("storage.key is required")
	}
	if c.Assistant.BaseURL == "" {
		return fmt.Errorf("assistant.base_url is required")
	}
	if c.Assistant.Model == "" {
		return fmt.Errorf("assistant.model is required")
	}
	if c.Assistant.TimeoutSeconds <= 0 {
		return fmt.Errorf("assistant.timeout_seconds must be positive")
	}
	switch c.Retrospective.Window {
	case WindowFriday, WindowToSunday:
	default:
		return fmt.Errorf("retrospective.window must be %q or %q", WindowFriday, WindowToSunday)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FOCUSLINE_ASSISTANT_API_KEY"); v != "" {
		c.Assistant.APIKey = v
	}
	if v := os.Getenv("FOCUSLINE_JWT_SECRET"); v != "" {
		c.Server.JWTSecret = v
	}
	if v := os.Getenv("FOCUSLINE_SERVER_API_KEY"); v != "" {
		c.Server.APIKey = v
	}
}

// AssistantTimeout returns the configured gateway timeout.
func (c *Config) AssistantTimeout() time.Duration {
	return time.Duration(c.Assistant.TimeoutSeconds) * time.Second
}

// ParseLogLevel converts a case-insensitive string to an slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (valid: debug, info, warn, error)", s)
	}
}

// GenerateDefault returns the default config rendered as YAML, used by
// `fl config init`.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `storage:
  key: weekly-plan

assistant:
  base_url: https://api.openai.com/v1
  # api_key can also come from FOCUSLINE_ASSISTANT_API_KEY
  api_key: ""
  model: gpt-4o-mini
  timeout_seconds: 30

retrospective:
  # "friday" offers the retrospective on Fridays only; a skipped Friday
  # means no retrospective until next week. "friday-to-sunday" broadens
  # the window through the weekend.
  window: friday

server:
  # jwt_secret enables bearer auth for fl serve; api_key allows a static
  # X-Api-Key header instead. Both can come from FOCUSLINE_JWT_SECRET and
  # FOCUSLINE_SERVER_API_KEY.
  jwt_secret: ""
  api_key: ""

log_level: info
`
