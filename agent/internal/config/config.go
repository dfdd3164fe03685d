package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/complianceworxs/chiefstaff/pkg/types"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultReportInterval = 30 * time.Second
	DefaultBufferSize     = 500
)

// Config is the top-level configuration for chiefstaff-agent.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// ServerURL is the base URL of chiefstaff-server, e.g. "http://localhost:8080".
	// The shipper POSTs reports to ServerURL + "/api/v1/reports".
	ServerURL string `yaml:"server_url"`

	// ReportInterval controls how often each persona runs an observation cycle.
	ReportInterval time.Duration `yaml:"report_interval"`

	// BufferSize is the maximum number of reports held in memory when the
	// server is unreachable.
	BufferSize int `yaml:"buffer_size"`

	// Personas is the list of executive agents this process simulates.
	Personas []Persona `yaml:"personas"`

	// ServerAuth configures how the agent authenticates to chiefstaff-server.
	ServerAuth AuthConfig `yaml:"server_auth"`
}

// Persona describes one simulated executive agent.
type Persona struct {
	// ID is a unique, human-readable identifier, e.g. "coo-1".
	ID string `yaml:"id"`

	// Role is one of the executive roles: coo | cro | cmo | cco |
	// content_manager | market_intelligence | governance.
	Role string `yaml:"role"`

	// Seed makes the persona's activity simulation reproducible.
	// Zero means derive a seed from the persona ID.
	Seed int64 `yaml:"seed"`

	// Baselines overrides the role's default KPI baselines, keyed by KPI name.
	Baselines map[string]float64 `yaml:"baselines"`
}

// AuthConfig specifies how the agent authenticates to the server.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header name to send the key in.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			ReportInterval: DefaultReportInterval,
			BufferSize:     DefaultBufferSize,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Agent.ServerURL == "" {
		return fmt.Errorf("agent.server_url is required")
	}
	if cfg.Agent.ReportInterval <= 0 {
		return fmt.Errorf("agent.report_interval must be positive")
	}
	if cfg.Agent.BufferSize <= 0 {
		return fmt.Errorf("agent.buffer_size must be positive")
	}
	seen := make(map[string]bool, len(cfg.Agent.Personas))
	for i, p := range cfg.Agent.Personas {
		if p.ID == "" {
			return fmt.Errorf("personas[%d]: id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("personas[%d]: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
		if !types.ValidRole(p.Role) {
			return fmt.Errorf("personas[%d] %q: unknown role %q", i, p.ID, p.Role)
		}
	}
	switch cfg.Agent.ServerAuth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("agent.server_auth.mode %q unknown: want apikey|none", cfg.Agent.ServerAuth.Mode)
	}
	return nil
}
