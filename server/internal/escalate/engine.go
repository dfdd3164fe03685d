package escalate

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/complianceworxs/chiefstaff/server/internal/config"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Escalation is a single human-attention event produced by the rule engine
// or raised directly by the remediation pipeline.
type Escalation struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Source     string     `json:"source"`
	Severity   string     `json:"severity"`
	Owner      string     `json:"owner,omitempty"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
}

// Engine evaluates escalation rules against agent snapshots and delivers
// webhook notifications when escalations fire or resolve. The pipeline can
// also raise escalations directly (failed playbooks, approvals needed).
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []config.EscalationRule
	webhooks []config.WebhookConfig

	mu       sync.Mutex
	active   map[string]*Escalation // key: "ruleName:source"
	lastFire map[string]time.Time   // last fire time per key (for cooldown)
	history  []*Escalation          // recently resolved escalations
	client   *http.Client
	now      func() time.Time
}

// New creates an Engine from the escalations configuration.
// An Engine with empty rules is valid — Evaluate becomes a no-op, but Raise
// still works.
func New(cfg config.EscalationsConfig) *Engine {
	return &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Escalation),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// Evaluate tests all configured rules against snap.
// Escalations that fire are stored and webhook delivery is triggered
// asynchronously. Escalations that were firing but whose condition is now
// false are resolved.
func (e *Engine) Evaluate(snap *Snapshot) {
	if len(e.rules) == 0 {
		return
	}

	now := e.now()
	for _, rule := range e.rules {
		key := rule.Name + ":" + snap.Source
		fires, value := evalCondition(rule.Condition, snap)

		if fires {
			msg := fmt.Sprintf("[%s] %s fired on %s — %s = %.2f",
				severityOrDefault(rule.Severity), rule.Name, snap.Source, rule.Condition, value)
			e.fire(key, rule.Name, snap.Source, rule.Severity, rule.Owner, msg, value, rule.Cooldown, now)
		} else {
			e.Resolve(rule.Name, snap.Source)
		}
	}
}

// Raise records an escalation not driven by a rule condition, such as a
// failed playbook run or an approval request at tier 1. It deduplicates on
// name:source with the default cooldown. Call Resolve when the underlying
// situation clears.
func (e *Engine) Raise(name, source, severity, owner, message string) {
	e.fire(name+":"+source, name, source, severity, owner, message, 0, 0, e.now())
}

// fire records one firing escalation, honouring the per-key cooldown, and
// triggers async webhook delivery.
func (e *Engine) fire(key, name, source, severity, owner, message string, value float64, cooldown time.Duration, now time.Time) {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	sev := severityOrDefault(severity)

	e.mu.Lock()
	if now.Sub(e.lastFire[key]) <= cooldown {
		e.mu.Unlock()
		return
	}
	esc := &Escalation{
		ID:       fmt.Sprintf("%s:%s:%d", name, source, now.UnixNano()),
		RuleName: name,
		Source:   source,
		Severity: sev,
		Owner:    owner,
		Message:  message,
		Value:    value,
		FiredAt:  now,
		State:    "firing",
	}
	e.active[key] = esc
	e.lastFire[key] = now
	cp := *esc
	e.mu.Unlock()

	slog.Warn("escalation fired",
		"rule", name,
		"source", source,
		"owner", owner,
		"severity", sev,
	)
	go e.deliver(&cp)
}

// Resolve clears a firing escalation for the given rule and source, moving
// it to history. It is a no-op if nothing is firing under that key.
func (e *Engine) Resolve(name, source string) {
	key := name + ":" + source

	e.mu.Lock()
	esc, ok := e.active[key]
	if !ok || esc.State != "firing" {
		e.mu.Unlock()
		return
	}
	resolved := e.now()
	esc.State = "resolved"
	esc.ResolvedAt = &resolved
	delete(e.active, key)

	e.history = append(e.history, esc)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
	cp := *esc
	e.mu.Unlock()

	slog.Info("escalation resolved",
		"rule", name,
		"source", source,
	)
	go e.deliver(&cp)
}

// Active returns copies of all currently firing escalations plus any
// resolved within the past hour.
func (e *Engine) Active() []*Escalation {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Escalation, 0, len(e.active))

	for _, esc := range e.active {
		cp := *esc
		out = append(out, &cp)
	}
	for _, esc := range e.history {
		if esc.ResolvedAt != nil && esc.ResolvedAt.After(cutoff) {
			cp := *esc
			out = append(out, &cp)
		}
	}
	return out
}

func severityOrDefault(sev string) string {
	if sev == "" {
		return "warning"
	}
	return sev
}
