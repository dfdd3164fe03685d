package escalate

import (
	"strconv"
	"strings"
)

// Snapshot is the view of one agent (or the whole fleet) that escalation
// rules are evaluated against.
type Snapshot struct {
	// Source identifies what the snapshot describes: an agent ID or "fleet".
	Source string

	// State is the autonomy state: autonomous | supervised | manual | calibrating.
	State string

	// AutonomyScore is the composite 0–100 score.
	AutonomyScore float64

	// KPIs holds the numeric metrics by name: auto_resolve_pct, mttr_min,
	// hitl_today, alignment_pct, queue_backlog, spend_usd, revenue_usd.
	KPIs map[string]float64

	// BudgetUsedPct is today's fleet budget utilisation.
	BudgetUsedPct float64
}

// evalCondition evaluates a rule condition string against a Snapshot.
//
// Supported expressions (field operator value):
//
//	auto_resolve_pct < 85
//	mttr_min > 5
//	hitl_today > 5
//	alignment_pct < 70
//	autonomy_score < 60
//	budget_used_pct > 100
//	queue_backlog > 20
//	state == manual
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, snap *Snapshot) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "state" {
		if op == "==" {
			return snap.State == rhs, 0
		}
		return false, 0
	}

	v, ok := numericField(field, snap)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the snapshot.
func numericField(field string, snap *Snapshot) (float64, bool) {
	switch field {
	case "autonomy_score":
		return snap.AutonomyScore, true
	case "budget_used_pct":
		return snap.BudgetUsedPct, true
	default:
		v, ok := snap.KPIs[field]
		return v, ok
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
