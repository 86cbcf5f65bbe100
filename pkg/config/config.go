// Package config loads the architect settings from the .architect directory
// and the environment. Reload keeps the last good configuration when a new
// payload fails validation.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported model providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Environment variables recognized by ApplyEnv.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvWorkspace       = "ARCHITECT_WORKSPACE"
	EnvImageDir        = "ARCHITECT_IMAGE_DIR"
	EnvMaxIterations   = "ARCHITECT_MAX_ITERATIONS"
)

// Settings is the declarative run configuration under .architect/.
type Settings struct {
	// Provider selects the model backend: "anthropic" or "openai".
	Provider string `json:"provider" yaml:"provider"`
	// Model is the provider-specific model name. Empty uses the provider
	// default.
	Model string `json:"model" yaml:"model"`
	// APIKey authenticates against the provider. Usually set through the
	// environment rather than the file.
	APIKey string `json:"api_key" yaml:"api_key"`
	// BaseURL overrides the provider endpoint, useful for proxies.
	BaseURL string `json:"base_url" yaml:"base_url"`
	// Workspace is the project root all tool paths resolve under.
	Workspace string `json:"workspace" yaml:"workspace"`
	// ImageDir holds the annotated UI screenshots.
	ImageDir string `json:"image_dir" yaml:"image_dir"`
	// MaxIterations caps model round-trips per run.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
	// MaxTokens caps tokens per model response.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
	// Timeout bounds the whole run, e.g. "10m".
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// SessionDir enables durable transcripts when non-empty.
	SessionDir string `json:"session_dir" yaml:"session_dir"`
	// OTLPEndpoint enables trace export when non-empty.
	OTLPEndpoint string `json:"otlp_endpoint" yaml:"otlp_endpoint"`

	SourcePath string `json:"-" yaml:"-"`
	SourceHash string `json:"-" yaml:"-"`
}

// Normalize trims whitespace and cleans paths.
func (s *Settings) Normalize() {
	if s == nil {
		return
	}
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
	s.Model = strings.TrimSpace(s.Model)
	s.APIKey = strings.TrimSpace(s.APIKey)
	s.BaseURL = strings.TrimSpace(s.BaseURL)
	if s.Workspace != "" {
		s.Workspace = filepath.Clean(strings.TrimSpace(s.Workspace))
	}
	if s.ImageDir != "" {
		s.ImageDir = filepath.Clean(strings.TrimSpace(s.ImageDir))
	}
	if s.SessionDir != "" {
		s.SessionDir = filepath.Clean(strings.TrimSpace(s.SessionDir))
	}
	s.OTLPEndpoint = strings.TrimSpace(s.OTLPEndpoint)
}

// ApplyEnv overlays environment variables on top of the file settings.
// Environment values win.
func (s *Settings) ApplyEnv() {
	switch s.Provider {
	case ProviderOpenAI:
		if v := os.Getenv(EnvOpenAIAPIKey); v != "" {
			s.APIKey = v
		}
	default:
		if v := os.Getenv(EnvAnthropicAPIKey); v != "" {
			s.APIKey = v
		}
	}
	if v := os.Getenv(EnvWorkspace); v != "" {
		s.Workspace = filepath.Clean(v)
	}
	if v := os.Getenv(EnvImageDir); v != "" {
		s.ImageDir = filepath.Clean(v)
	}
	if v := os.Getenv(EnvMaxIterations); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.MaxIterations = n
		}
	}
}

// Validate reports the first fatal problem in the settings.
func (s *Settings) Validate() error {
	switch s.Provider {
	case "", ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("config: unknown provider %q", s.Provider)
	}
	if s.APIKey == "" {
		return errors.New("config: api key is required, set it in the config file or environment")
	}
	if s.Workspace == "" {
		return errors.New("config: workspace is required")
	}
	if info, err := os.Stat(s.Workspace); err != nil || !info.IsDir() {
		return fmt.Errorf("config: workspace %s is not a directory", s.Workspace)
	}
	if s.ImageDir == "" {
		return errors.New("config: image_dir is required")
	}
	if s.MaxIterations < 0 {
		return fmt.Errorf("config: max_iterations must not be negative, got %d", s.MaxIterations)
	}
	return nil
}

// ParseSettings parses a yaml or json payload into Settings.
func ParseSettings(data []byte) (*Settings, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("config: payload is empty")
	}
	cfg := &Settings{}
	if err := decodeMixedYAMLJSON(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

func decodeMixedYAMLJSON(data []byte, out any) error {
	if err := yaml.Unmarshal(data, out); err == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err == nil {
		return nil
	}
	return errors.New("config: decode failed: unsupported format")
}

func computeHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
