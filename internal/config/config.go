// Package config loads application configuration from environment variables,
// with an optional YAML file overlay for tunables and development seeding.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`

	// Store
	DBPath string `envconfig:"DB_PATH" default:"storyline.db"`

	// Generative backend. Optional: when unset, every synthesis takes the
	// deterministic path.
	GeminiAPIKey    string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel     string        `envconfig:"GEMINI_MODEL" default:"gemini-pro"`
	GeminiMaxTokens int           `envconfig:"GEMINI_MAX_TOKENS" default:"1024"`
	GeminiTimeout   time.Duration `envconfig:"GEMINI_TIMEOUT" default:"30s"`

	// Background regeneration
	RegenWorkers   int `envconfig:"REGEN_WORKERS" default:"2"`
	RegenQueueSize int `envconfig:"REGEN_QUEUE_SIZE" default:"256"`
	RegenWindow    int `envconfig:"REGEN_WINDOW" default:"50"`

	// Internal endpoint service auth (HS256)
	ServiceSecret   string        `envconfig:"SERVICE_SECRET"`
	ServiceTokenTTL time.Duration `envconfig:"SERVICE_TOKEN_TTL" default:"10m"`

	// Optional YAML overlay, see File
	ConfigFile string `envconfig:"CONFIG_FILE"`

	// File carries the parsed YAML overlay when ConfigFile is set.
	File *FileConfig `ignored:"true"`
}

// FileConfig is the optional storyline.yaml overlay. Values support ${VAR}
// environment expansion. It exists for tunables that are awkward as flat env
// vars and for seeding development credentials.
type FileConfig struct {
	Regen struct {
		Workers   int `yaml:"workers"`
		QueueSize int `yaml:"queue_size"`
		Window    int `yaml:"window"`
	} `yaml:"regen"`

	LLM struct {
		APIKey    string `yaml:"api_key"`
		Model     string `yaml:"model"`
		MaxTokens int    `yaml:"max_tokens"`
	} `yaml:"llm"`

	// Seed projects and credentials, applied at startup when present.
	// Intended for development and tests; production provisioning happens
	// through the management surface.
	Seed []SeedProject `yaml:"seed"`
}

// SeedProject describes one project with its credentials for dev seeding.
type SeedProject struct {
	PublicID string `yaml:"public_id"`
	Name     string `yaml:"name"`
	OwnerID  string `yaml:"owner_id"`
	Keys     []struct {
		Key    string `yaml:"key"`
		Secret string `yaml:"secret"`
		Active *bool  `yaml:"active"`
	} `yaml:"keys"`
}

// Load reads configuration from the environment and, if CONFIG_FILE is set,
// merges the YAML overlay on top.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("STORYLINE", &cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if cfg.RegenWindow <= 0 {
		return nil, fmt.Errorf("REGEN_WINDOW must be positive, got %d", cfg.RegenWindow)
	}

	if cfg.ConfigFile != "" {
		fc, err := LoadFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg.File = fc
		cfg.applyFile(fc)
	}

	return &cfg, nil
}

func (c *Config) applyFile(fc *FileConfig) {
	if fc.Regen.Workers > 0 {
		c.RegenWorkers = fc.Regen.Workers
	}
	if fc.Regen.QueueSize > 0 {
		c.RegenQueueSize = fc.Regen.QueueSize
	}
	if fc.Regen.Window > 0 {
		c.RegenWindow = fc.Regen.Window
	}
	if fc.LLM.APIKey != "" {
		c.GeminiAPIKey = fc.LLM.APIKey
	}
	if fc.LLM.Model != "" {
		c.GeminiModel = fc.LLM.Model
	}
	if fc.LLM.MaxTokens > 0 {
		c.GeminiMaxTokens = fc.LLM.MaxTokens
	}
}

var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}|\$(\w+)`)

// expandEnvVars replaces ${VAR} and $VAR in YAML values with environment
// variable values. Unset variables expand to the empty string.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		groups := envVarPattern.FindSubmatch(match)
		name := string(groups[1])
		if name == "" {
			name = string(groups[2])
		}
		return []byte(os.Getenv(name))
	})
}

// LoadFile parses a YAML overlay file with ${VAR} expansion.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(expandEnvVars(data), &fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &fc, nil
}

// LLMEnabled reports whether the generative backend is configured.
func (c *Config) LLMEnabled() bool {
	return c.GeminiAPIKey != ""
}
