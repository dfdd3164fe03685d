package api

import (
	"fmt"

	"github.com/complianceworxs/chiefstaff/pkg/types"
)

// DiagnosticHint is one human-readable insight about an agent's condition.
// The UI displays these as chips on the agent card; clicking one shows
// Detail — written like an assistant explaining the situation in plain English.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// computeDiagnostics derives human-readable hints from an agent report.
// Critical conditions come first.
func computeDiagnostics(r *types.AgentReport) []DiagnosticHint {
	var hints []DiagnosticHint

	if r.ErrorMessage != "" {
		hints = append(hints, DiagnosticHint{
			Key:   "observation_failed",
			Level: "critical",
			Title: "Observation failed",
			Detail: fmt.Sprintf(
				"The agent's last work cycle failed: \"%s\". "+
					"Its KPIs are carried over from the previous cycle, so the numbers "+
					"you see may be stale. If this repeats, the agent's upstream systems "+
					"are likely unreachable.",
				r.ErrorMessage,
			),
		})
		return hints // nothing else is trustworthy without a live cycle
	}

	if r.State == types.StateCalibrating {
		hints = append(hints, DiagnosticHint{
			Key:   "calibrating",
			Level: "info",
			Title: "Calibrating",
			Detail: "This agent is in its first work cycles and has no KPI baseline yet. " +
				"The autonomy score needs a few cycles of history before it means anything. " +
				"No action needed.",
		})
		return hints
	}

	if r.State == types.StateManual {
		score := r.AutonomyScore
		hints = append(hints, DiagnosticHint{
			Key:   "autonomy_revoked",
			Level: "critical",
			Title: "Running manually",
			Detail: fmt.Sprintf(
				"This agent's autonomy score has fallen to %.0f, below the supervised "+
					"threshold, so it no longer acts on its own. Every task it would have "+
					"handled now lands on a human. Look at its escalation and resolution "+
					"numbers to see what dragged the score down.",
				score,
			),
			Value: &score,
		})
	}

	if ar := r.KPIs[types.KPIAutoResolvePct]; ar > 0 && ar < 85 {
		v := ar
		level := "warning"
		if ar < 70 {
			level = "critical"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "auto_resolve_low",
			Level: level,
			Title: fmt.Sprintf("%.0f%% auto-resolve", ar),
			Detail: fmt.Sprintf(
				"Only %.1f%% of this agent's incidents are resolved without a human, "+
					"against a target of 85%%. The shortfall lands on your team as "+
					"escalations. Usual causes: a new class of task the playbooks don't "+
					"cover yet, or an upstream dependency failing in a way retries can't fix.",
				ar,
			),
			Value: &v,
		})
	}

	if mttr := r.KPIs[types.KPIMTTRMin]; mttr > 5 {
		v := mttr
		level := "warning"
		if mttr > 10 {
			level = "critical"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "mttr_high",
			Level: level,
			Title: fmt.Sprintf("%.1fmin MTTR", mttr),
			Detail: fmt.Sprintf(
				"Incidents are taking %.1f minutes on average to resolve, over the "+
					"5 minute target. Slow resolutions compound: the queue backs up and "+
					"the auto-resolve rate usually follows. Check whether one incident "+
					"type dominates the window.",
				mttr,
			),
			Value: &v,
		})
	}

	if hitl := r.KPIs[types.KPIHITLToday]; hitl > 5 {
		v := hitl
		hints = append(hints, DiagnosticHint{
			Key:   "hitl_overload",
			Level: "warning",
			Title: fmt.Sprintf("%.0f escalations today", hitl),
			Detail: fmt.Sprintf(
				"This agent has pulled a human in %.0f times today, above the 5/day "+
					"budget. That is the opposite of what the fleet is for. If the "+
					"escalations cluster around one task type, it is a candidate for a "+
					"new playbook.",
				hitl,
			),
			Value: &v,
		})
	}

	if backlog := r.KPIs[types.KPIQueueBacklog]; backlog >= 5 {
		v := backlog
		hints = append(hints, DiagnosticHint{
			Key:   "backlog",
			Level: "warning",
			Title: fmt.Sprintf("%.0f items queued", backlog),
			Detail: fmt.Sprintf(
				"The agent's work queue holds %.0f items; normal is under 5. "+
					"A growing backlog means intake is outpacing resolution — the "+
					"scale-workers playbook usually clears it, so check the decision log "+
					"for a recent run.",
				backlog,
			),
			Value: &v,
		})
	}

	if len(hints) == 0 {
		score := r.AutonomyScore
		hints = append(hints, DiagnosticHint{
			Key:   "healthy",
			Level: "ok",
			Title: "All clear",
			Detail: fmt.Sprintf(
				"This agent is operating autonomously with a score of %.0f/100. "+
					"Resolution time, escalation rate, and queue depth are all inside "+
					"their targets.",
				score,
			),
			Value: &score,
		})
	}
	return hints
}
