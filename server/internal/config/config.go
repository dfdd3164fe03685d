package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort        = 8080
	DefaultReportTTL       = 5 * time.Minute
	DefaultTier            = 2
	DefaultMaxRetries      = 3
	DefaultRiskThreshold   = 0.5
	DefaultQueueCap        = 100
	DefaultDailyBudgetUSD  = 75
	DefaultBudgetWarnPct   = 80
	DefaultChecklistPeriod = 7 * 24 * time.Hour
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. The `agent:` key in the same file is ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub, and metrics endpoint
	// listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how the server authenticates incoming clients.
	Auth AuthConfig `yaml:"auth"`

	// Report controls in-memory agent report retention.
	Report ReportConfig `yaml:"report"`

	// Autonomy controls the remediation pipeline's tier and execution limits.
	Autonomy AutonomyConfig `yaml:"autonomy"`

	// PlaybooksPath is the YAML file holding playbook definitions.
	// Empty means the built-in playbook set is used.
	PlaybooksPath string `yaml:"playbooks_path"`

	// Constitution holds content and financial gating rules.
	Constitution ConstitutionConfig `yaml:"constitution"`

	// Finance configures budget tracking.
	Finance FinanceConfig `yaml:"finance"`

	// Escalations holds rule definitions and webhook delivery targets.
	Escalations EscalationsConfig `yaml:"escalations"`

	// Checklist controls the periodic CEO autonomy checklist.
	Checklist ChecklistConfig `yaml:"checklist"`
}

// AuthConfig controls client authentication.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected
	// API key. Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
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

// ReportConfig controls in-memory agent report retention.
type ReportConfig struct {
	// TTL is how long an agent's report remains live after its last update.
	// An agent that stops reporting for TTL is treated as offline. Default: 5m.
	TTL time.Duration `yaml:"ttl"`
}

// AutonomyConfig controls the remediation pipeline.
type AutonomyConfig struct {
	// Tier selects how much the pipeline may do without a human:
	//   1 — advisory: every actionable signal queues for approval
	//   2 — guarded: execute playbooks with risk <= RiskThreshold, queue the rest
	//   3 — full: execute any constitutionally-cleared playbook
	Tier int `yaml:"tier"`

	// MaxRetries bounds per-step retry attempts during playbook execution.
	MaxRetries int `yaml:"max_retries"`

	// RiskThreshold is the tier-2 execution cutoff, in [0,1].
	RiskThreshold float64 `yaml:"risk_threshold"`

	// QueueCap bounds the pending-approval queue; beyond it the oldest
	// pending entry is rejected automatically.
	QueueCap int `yaml:"queue_cap"`

	// UtilityFloor is the minimum expected utility a playbook must score to
	// be selected at all.
	UtilityFloor float64 `yaml:"utility_floor"`
}

// ConstitutionConfig holds content and financial gating rules.
type ConstitutionConfig struct {
	// ForbiddenPhrases blocks any draft containing one of these, case-insensitive.
	ForbiddenPhrases []string `yaml:"forbidden_phrases"`

	// ClaimPatterns are regexes matching unsubstantiated marketing claims.
	ClaimPatterns []string `yaml:"claim_patterns"`

	// RegulatedPatterns are regexes matching regulated-topic language; a match
	// requires DisclaimerPattern to also match, or the draft is blocked.
	RegulatedPatterns []string `yaml:"regulated_patterns"`

	// DisclaimerPattern is the regex a mandated disclaimer must satisfy.
	DisclaimerPattern string `yaml:"disclaimer_pattern"`

	// MaxActionSpendUSD caps the cost of any single autonomous action.
	MaxActionSpendUSD float64 `yaml:"max_action_spend_usd"`
}

// FinanceConfig configures budget tracking.
type FinanceConfig struct {
	// DailyBudgetUSD is the fleet-wide daily spend budget.
	DailyBudgetUSD float64 `yaml:"daily_budget_usd"`

	// WarnPct is the budget utilisation percentage that raises a warning
	// signal. Crossing 100% always raises a critical signal.
	WarnPct float64 `yaml:"warn_pct"`
}

// EscalationsConfig holds escalation rules and webhook delivery targets.
type EscalationsConfig struct {
	Rules    []EscalationRule `yaml:"rules"`
	Webhooks []WebhookConfig  `yaml:"webhooks"`
}

// EscalationRule defines one threshold-based escalation condition evaluated
// against the fleet scoreboard.
type EscalationRule struct {
	// Name is the human-readable identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "auto_resolve_pct < 85",
	// "mttr_min > 5", "hitl_today > 5", "budget_used_pct > 100",
	// "state == manual".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Owner is the executive accountable for the escalation
	// (COO/CTO/CMO/CRO/CoS).
	Owner string `yaml:"owner"`

	// Cooldown suppresses re-fires for this duration after firing.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// ChecklistConfig controls the periodic autonomy checklist delivery.
type ChecklistConfig struct {
	// Interval is how often the checklist is generated and pushed to
	// webhooks. Default: weekly.
	Interval time.Duration `yaml:"interval"`
}

// DefaultEscalationRules are applied when no rules are configured. The
// thresholds mirror the operating policy: auto-resolve below 85% goes to the
// CTO, MTTR over 5 minutes needs immediate attention, more than 5 HITL
// escalations a day triggers a chief-of-staff review.
func DefaultEscalationRules() []EscalationRule {
	return []EscalationRule{
		{Name: "auto-resolve-degraded", Condition: "auto_resolve_pct < 85", Severity: "warning", Owner: "CTO"},
		{Name: "mttr-over-target", Condition: "mttr_min > 5", Severity: "critical", Owner: "COO"},
		{Name: "hitl-overload", Condition: "hitl_today > 5", Severity: "warning", Owner: "CoS"},
		{Name: "budget-exceeded", Condition: "budget_used_pct > 100", Severity: "critical", Owner: "COO"},
	}
}

// Load reads and parses the config file at path, returning the server
// configuration. Missing fields are filled with sensible defaults before
// validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	applyFallbacks(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Report:   ReportConfig{TTL: DefaultReportTTL},
			Autonomy: AutonomyConfig{
				Tier:          DefaultTier,
				MaxRetries:    DefaultMaxRetries,
				RiskThreshold: DefaultRiskThreshold,
				QueueCap:      DefaultQueueCap,
			},
			Finance: FinanceConfig{
				DailyBudgetUSD: DefaultDailyBudgetUSD,
				WarnPct:        DefaultBudgetWarnPct,
			},
			Checklist: ChecklistConfig{Interval: DefaultChecklistPeriod},
		},
	}
}

// applyFallbacks fills collection-valued defaults that yaml.Unmarshal would
// otherwise treat as intentionally empty.
func applyFallbacks(cfg *Config) {
	if len(cfg.Server.Escalations.Rules) == 0 {
		cfg.Server.Escalations.Rules = DefaultEscalationRules()
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := &cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if s.Report.TTL < 0 {
		return fmt.Errorf("server.report.ttl must not be negative")
	}
	if s.Autonomy.Tier < 1 || s.Autonomy.Tier > 3 {
		return fmt.Errorf("server.autonomy.tier %d is out of range [1, 3]", s.Autonomy.Tier)
	}
	if s.Autonomy.MaxRetries < 0 {
		return fmt.Errorf("server.autonomy.max_retries must not be negative")
	}
	if s.Autonomy.RiskThreshold < 0 || s.Autonomy.RiskThreshold > 1 {
		return fmt.Errorf("server.autonomy.risk_threshold %v is out of range [0, 1]", s.Autonomy.RiskThreshold)
	}
	if s.Autonomy.QueueCap <= 0 {
		return fmt.Errorf("server.autonomy.queue_cap must be positive")
	}
	if s.Finance.DailyBudgetUSD <= 0 {
		return fmt.Errorf("server.finance.daily_budget_usd must be positive")
	}
	if s.Finance.WarnPct <= 0 || s.Finance.WarnPct > 100 {
		return fmt.Errorf("server.finance.warn_pct %v is out of range (0, 100]", s.Finance.WarnPct)
	}
	for i, r := range s.Escalations.Rules {
		if r.Name == "" {
			return fmt.Errorf("escalations.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("escalations.rules[%d] %q: condition is required", i, r.Name)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("escalations.rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	if s.Checklist.Interval <= 0 {
		return fmt.Errorf("server.checklist.interval must be positive")
	}
	return nil
}
