package compute

import "github.com/complianceworxs/chiefstaff/pkg/types"

// Weight constants for the autonomy score formula.
// They must sum to 1.0.
const (
	weightAutoResolve = 0.40
	weightMTTR        = 0.25
	weightEscalation  = 0.20
	weightAlignment   = 0.15
)

// Operational targets the factors are measured against.
const (
	TargetMTTRMin    = 5.0 // minutes; at 2× target the MTTR factor reaches 0
	TargetHITLPerDay = 5.0 // escalations/day budget before autonomy is questioned
)

// Thresholds that map a score to an autonomy state.
const (
	ThresholdAutonomous = 85.0
	ThresholdSupervised = 60.0
)

// Input holds the normalised KPI values fed into the autonomy score formula.
type Input struct {
	// AutoResolvePct is the share of tasks resolved without a human, 0–100.
	AutoResolvePct float64

	// MTTRMin is the rolling mean time to resolution in minutes.
	MTTRMin float64

	// HITLToday is the number of human escalations so far today.
	HITLToday float64

	// AlignmentPct is the share of work tied to strategic objectives, 0–100.
	AlignmentPct float64
}

// Output is the result of the autonomy score calculation.
type Output struct {
	// Score is the composite autonomy score in the range 0–100.
	Score float64

	// State is the autonomy state derived from Score.
	// One of: "autonomous", "supervised", "manual".
	State string

	// The four factor values (each 0–1) used to compute Score.
	// Useful for rendering per-dimension breakdowns on the dashboard.
	AutoResolveFactor float64
	MTTRFactor        float64
	EscalationFactor  float64
	AlignmentFactor   float64
}

// Score calculates the composite autonomy score from the given inputs.
//
// Formula:
//
//	score = (
//	    auto_resolve_pct/100                      * 0.40  +
//	    (1 - overrun)                             * 0.25  +   // overrun = (mttr-target)/target, clamped to [0,1]
//	    (1 - hitl_today/hitl_budget)              * 0.20  +
//	    alignment_pct/100                         * 0.15
//	) * 100
//
// An MTTR at or below target earns full credit; at twice the target the MTTR
// factor is 0. HITL escalations at or above budget zero out that factor.
func Score(in Input) Output {
	autoFactor := clamp01(in.AutoResolvePct / 100)

	mttrFactor := 1.0
	if in.MTTRMin > TargetMTTRMin {
		mttrFactor = 1 - clamp01((in.MTTRMin-TargetMTTRMin)/TargetMTTRMin)
	}

	escFactor := 1 - clamp01(in.HITLToday/TargetHITLPerDay)
	alignFactor := clamp01(in.AlignmentPct / 100)

	score := (autoFactor*weightAutoResolve +
		mttrFactor*weightMTTR +
		escFactor*weightEscalation +
		alignFactor*weightAlignment) * 100

	return Output{
		Score:             score,
		State:             stateFromScore(score),
		AutoResolveFactor: autoFactor,
		MTTRFactor:        mttrFactor,
		EscalationFactor:  escFactor,
		AlignmentFactor:   alignFactor,
	}
}

// stateFromScore maps a numeric score to a named autonomy state.
func stateFromScore(score float64) string {
	switch {
	case score >= ThresholdAutonomous:
		return types.StateAutonomous
	case score >= ThresholdSupervised:
		return types.StateSupervised
	default:
		return types.StateManual
	}
}

// clamp01 restricts v to the range [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
