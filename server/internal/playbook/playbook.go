package playbook

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/complianceworxs/chiefstaff/pkg/types"
)

// Step is one action within a playbook. Steps run in order; a step that
// exhausts its retries fails the whole run.
type Step struct {
	// Name is a short identifier for logs and decision records.
	Name string `yaml:"name" json:"name"`

	// Action names the operation the executor performs, e.g.
	// "restart_service", "scale_workers", "pause_campaign".
	Action string `yaml:"action" json:"action"`

	// SuccessProb is the per-attempt probability the step succeeds, in (0,1].
	SuccessProb float64 `yaml:"success_prob" json:"success_prob"`

	// CostUSD is the estimated spend of running this step once.
	CostUSD float64 `yaml:"cost_usd" json:"cost_usd"`
}

// Playbook is a remediation recipe for a class of signals.
type Playbook struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`

	// Categories lists the signal categories this playbook addresses.
	Categories []string `yaml:"categories" json:"categories"`

	// MinSeverity is the weakest severity this playbook responds to.
	MinSeverity string `yaml:"min_severity" json:"min_severity"`

	// ImpactUSD estimates the value of a successful run.
	ImpactUSD float64 `yaml:"impact_usd" json:"impact_usd"`

	// Risk is the blast-radius estimate in [0,1]; tier 2 only executes
	// playbooks at or below the configured risk threshold.
	Risk float64 `yaml:"risk" json:"risk"`

	// Cooldown suppresses re-selection for this duration after a run.
	Cooldown time.Duration `yaml:"cooldown" json:"cooldown"`

	Steps []Step `yaml:"steps" json:"steps"`
}

// SuccessProb is the probability every step succeeds on first attempt.
func (p *Playbook) SuccessProb() float64 {
	prob := 1.0
	for _, s := range p.Steps {
		prob *= s.SuccessProb
	}
	return prob
}

// CostUSD is the total estimated spend of a full run.
func (p *Playbook) CostUSD() float64 {
	var cost float64
	for _, s := range p.Steps {
		cost += s.CostUSD
	}
	return cost
}

// matches reports whether this playbook addresses the given signal.
func (p *Playbook) matches(sig *types.Signal) bool {
	if types.SeverityRank(sig.Severity) < types.SeverityRank(p.MinSeverity) {
		return false
	}
	for _, c := range p.Categories {
		if c == sig.Category {
			return true
		}
	}
	return false
}

type fileFormat struct {
	Playbooks []Playbook `yaml:"playbooks"`
}

// Load reads playbook definitions from a YAML file. An empty path returns
// the built-in set.
func Load(path string) ([]Playbook, error) {
	if path == "" {
		return Builtin(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("playbook: read %q: %w", path, err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("playbook: parse yaml: %w", err)
	}
	if len(f.Playbooks) == 0 {
		return nil, fmt.Errorf("playbook: %q defines no playbooks", path)
	}
	if err := validate(f.Playbooks); err != nil {
		return nil, fmt.Errorf("playbook: %w", err)
	}
	return f.Playbooks, nil
}

func validate(pbs []Playbook) error {
	seen := map[string]bool{}
	for i, p := range pbs {
		if p.ID == "" {
			return fmt.Errorf("playbooks[%d]: id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("playbooks[%d]: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
		if len(p.Categories) == 0 {
			return fmt.Errorf("playbook %q: categories is required", p.ID)
		}
		if p.Risk < 0 || p.Risk > 1 {
			return fmt.Errorf("playbook %q: risk %v is out of range [0, 1]", p.ID, p.Risk)
		}
		if len(p.Steps) == 0 {
			return fmt.Errorf("playbook %q: steps is required", p.ID)
		}
		for j, s := range p.Steps {
			if s.Action == "" {
				return fmt.Errorf("playbook %q: steps[%d]: action is required", p.ID, j)
			}
			if s.SuccessProb <= 0 || s.SuccessProb > 1 {
				return fmt.Errorf("playbook %q: steps[%d]: success_prob %v is out of range (0, 1]", p.ID, j, s.SuccessProb)
			}
		}
	}
	return nil
}

// Builtin returns the default playbook set, covering the common signal
// categories. Operators replace it wholesale via playbooks_path.
func Builtin() []Playbook {
	return []Playbook{
		{
			ID:          "restart-service",
			Name:        "Restart degraded service",
			Categories:  []string{types.CategoryInfrastructure},
			MinSeverity: types.SeverityWarning,
			ImpactUSD:   200,
			Risk:        0.3,
			Cooldown:    10 * time.Minute,
			Steps: []Step{
				{Name: "drain", Action: "drain_traffic", SuccessProb: 0.98, CostUSD: 0},
				{Name: "restart", Action: "restart_service", SuccessProb: 0.92, CostUSD: 1},
				{Name: "health-check", Action: "verify_health", SuccessProb: 0.95, CostUSD: 0},
			},
		},
		{
			ID:          "scale-workers",
			Name:        "Scale worker pool against backlog",
			Categories:  []string{types.CategoryOperations, types.CategoryInfrastructure},
			MinSeverity: types.SeverityWarning,
			ImpactUSD:   120,
			Risk:        0.2,
			Cooldown:    15 * time.Minute,
			Steps: []Step{
				{Name: "scale-up", Action: "scale_workers", SuccessProb: 0.95, CostUSD: 4},
				{Name: "drain-backlog", Action: "drain_backlog", SuccessProb: 0.9, CostUSD: 0},
			},
		},
		{
			ID:          "retry-failed-jobs",
			Name:        "Requeue failed jobs",
			Categories:  []string{types.CategoryOperations},
			MinSeverity: types.SeverityInfo,
			ImpactUSD:   40,
			Risk:        0.1,
			Cooldown:    5 * time.Minute,
			Steps: []Step{
				{Name: "requeue", Action: "requeue_failed", SuccessProb: 0.9, CostUSD: 0.5},
			},
		},
		{
			ID:          "pause-campaign",
			Name:        "Pause overspending campaign",
			Categories:  []string{types.CategoryFinance, types.CategoryMarketing},
			MinSeverity: types.SeverityWarning,
			ImpactUSD:   80,
			Risk:        0.4,
			Cooldown:    time.Hour,
			Steps: []Step{
				{Name: "identify", Action: "rank_campaign_spend", SuccessProb: 0.97, CostUSD: 0},
				{Name: "pause", Action: "pause_campaign", SuccessProb: 0.93, CostUSD: 0},
			},
		},
		{
			ID:          "winback-offer",
			Name:        "Send churn-risk winback offer",
			Categories:  []string{types.CategoryRevenue},
			MinSeverity: types.SeverityWarning,
			ImpactUSD:   150,
			Risk:        0.5,
			Cooldown:    24 * time.Hour,
			Steps: []Step{
				{Name: "segment", Action: "segment_at_risk", SuccessProb: 0.95, CostUSD: 0},
				{Name: "send", Action: "send_offer", SuccessProb: 0.9, CostUSD: 12},
			},
		},
		{
			ID:          "hold-publication",
			Name:        "Hold flagged content for review",
			Categories:  []string{types.CategoryContent, types.CategoryCompliance},
			MinSeverity: types.SeverityInfo,
			ImpactUSD:   60,
			Risk:        0.1,
			Cooldown:    time.Minute,
			Steps: []Step{
				{Name: "hold", Action: "hold_publication", SuccessProb: 0.99, CostUSD: 0},
				{Name: "notify", Action: "notify_reviewer", SuccessProb: 0.97, CostUSD: 0},
			},
		},
	}
}
