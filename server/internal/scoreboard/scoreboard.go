package scoreboard

import (
	"fmt"
	"time"

	"github.com/complianceworxs/chiefstaff/pkg/types"
	"github.com/complianceworxs/chiefstaff/server/internal/autonomy"
	"github.com/complianceworxs/chiefstaff/server/internal/escalate"
	"github.com/complianceworxs/chiefstaff/server/internal/finance"
	"github.com/complianceworxs/chiefstaff/server/internal/store"
)

// ActionItem is one thing a human should do, surfaced on the dashboard.
type ActionItem struct {
	Title    string `json:"title"`
	Owner    string `json:"owner"`
	Source   string `json:"source"`
	Severity string `json:"severity"`
}

// FleetHealth aggregates the live agents' autonomy KPIs.
type FleetHealth struct {
	Agents         int            `json:"agents"`
	States         map[string]int `json:"states"`
	AvgScore       float64        `json:"avg_score"`
	AutoResolvePct float64        `json:"auto_resolve_pct"`
	MTTRMin        float64        `json:"mttr_min"`
	HITLToday      float64        `json:"hitl_today"`
	AlignmentPct   float64        `json:"alignment_pct"`
}

// RevenueSection is the money view: what came in, what autonomy spent.
type RevenueSection struct {
	WeeklyUSD       float64 `json:"weekly_usd"`
	SpendTodayUSD   float64 `json:"spend_today_usd"`
	BudgetUsedPct   float64 `json:"budget_used_pct"`
	RevenuePerSpend float64 `json:"revenue_per_spend"`
}

// RiskSection summarises what needs watching.
type RiskSection struct {
	FiringEscalations int     `json:"firing_escalations"`
	BlockedActions    int     `json:"blocked_actions"`
	FailedRuns        int     `json:"failed_runs"`
	PendingApprovals  int     `json:"pending_approvals"`
	QueueBacklog      float64 `json:"queue_backlog"`
}

// Scoreboard is the CEO-facing rollup of the whole operation.
type Scoreboard struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Fleet       FleetHealth    `json:"fleet"`
	Revenue     RevenueSection `json:"revenue"`
	Risk        RiskSection    `json:"risk"`
	Actions     []ActionItem   `json:"actions"`
	Insights    []string       `json:"insights"`
	Narrative   string         `json:"narrative"`
}

// Input carries everything Build aggregates. Collecting it in one struct
// keeps the builder free of direct engine dependencies beyond the types.
type Input struct {
	Entries     []*store.Entry
	Finance     finance.Summary
	Escalations []*escalate.Escalation
	Decisions   []*autonomy.DecisionRecord
	Approvals   int
}

// ownerForRole routes an agent's follow-ups to the accountable executive.
var ownerForRole = map[string]string{
	types.RoleCOO:         "COO",
	types.RoleCRO:         "CRO",
	types.RoleCMO:         "CMO",
	types.RoleCCO:         "CCO",
	types.RoleContent:     "CMO",
	types.RoleMarketIntel: "CRO",
	types.RoleGovernance:  "CoS",
}

// Build assembles the scoreboard from live reports, finance totals, firing
// escalations, and recent decisions. Calibrating agents count toward the
// fleet size but not the KPI averages.
func Build(in Input, now time.Time) *Scoreboard {
	sb := &Scoreboard{
		GeneratedAt: now.UTC(),
		Fleet:       FleetHealth{States: make(map[string]int)},
	}

	live := 0
	briefRevPerSpend, briefRevPerSpendN := 0.0, 0
	for _, e := range in.Entries {
		r := e.Report
		sb.Fleet.Agents++
		sb.Fleet.States[r.State]++

		facts := ParseBrief(r.Brief)
		if facts.Bottleneck != "" {
			sb.Actions = append(sb.Actions, ActionItem{
				Title:    fmt.Sprintf("%s: %s", r.AgentID, facts.Bottleneck),
				Owner:    ownerFor(r.Role),
				Source:   r.AgentID,
				Severity: types.SeverityWarning,
			})
		}
		if r.State == types.StateManual {
			sb.Actions = append(sb.Actions, ActionItem{
				Title:    fmt.Sprintf("%s: autonomy revoked, re-baseline the agent", r.AgentID),
				Owner:    "CoS",
				Source:   r.AgentID,
				Severity: types.SeverityCritical,
			})
		}

		if r.State == types.StateCalibrating || facts.Baseline {
			continue
		}
		live++
		sb.Fleet.AvgScore += r.AutonomyScore
		// KPIs are authoritative; the brief's metric lines back them up when
		// a report arrives with a sparse KPI map.
		sb.Fleet.AutoResolvePct += kpiOr(r.KPIs, types.KPIAutoResolvePct, facts.AutoResolvePct)
		sb.Fleet.MTTRMin += kpiOr(r.KPIs, types.KPIMTTRMin, facts.MTTRMin)
		sb.Fleet.HITLToday += r.KPIs[types.KPIHITLToday]
		sb.Fleet.AlignmentPct += r.KPIs[types.KPIAlignmentPct]
		sb.Revenue.WeeklyUSD += kpiOr(r.KPIs, types.KPIRevenueUSD, facts.WeeklyRevenue)
		if facts.RevenuePerSpend > 0 {
			briefRevPerSpend += facts.RevenuePerSpend
			briefRevPerSpendN++
		}
	}
	if live > 0 {
		sb.Fleet.AvgScore /= float64(live)
		sb.Fleet.AutoResolvePct /= float64(live)
		sb.Fleet.MTTRMin /= float64(live)
		sb.Fleet.AlignmentPct /= float64(live)
	}

	sb.Revenue.SpendTodayUSD = in.Finance.DayTotalUSD
	sb.Revenue.BudgetUsedPct = in.Finance.BudgetUsedPct
	if in.Finance.DayTotalUSD > 0 {
		sb.Revenue.RevenuePerSpend = sb.Revenue.WeeklyUSD / in.Finance.DayTotalUSD
	} else if briefRevPerSpendN > 0 {
		// No spend booked yet today; carry the fleet's own trailing ratio.
		sb.Revenue.RevenuePerSpend = briefRevPerSpend / float64(briefRevPerSpendN)
	}

	for _, esc := range in.Escalations {
		if esc.State == "firing" {
			sb.Risk.FiringEscalations++
			sb.Actions = append(sb.Actions, ActionItem{
				Title:    esc.Message,
				Owner:    esc.Owner,
				Source:   esc.Source,
				Severity: esc.Severity,
			})
		}
	}
	for _, d := range in.Decisions {
		switch d.Outcome {
		case autonomy.OutcomeBlocked:
			sb.Risk.BlockedActions++
		case autonomy.OutcomeFailed, autonomy.OutcomeUnverified:
			sb.Risk.FailedRuns++
		}
	}
	sb.Risk.PendingApprovals = in.Approvals

	sb.Insights = insights(sb, live)
	sb.Narrative = narrative(sb, live)
	return sb
}

// insights derives the short observations shown under the headline numbers.
func insights(sb *Scoreboard, live int) []string {
	var out []string
	if live == 0 {
		return append(out, "no live agents reporting; fleet is calibrating or offline")
	}
	if sb.Fleet.MTTRMin > 5 {
		out = append(out, fmt.Sprintf("fleet MTTR %.1fmin is over the 5min target", sb.Fleet.MTTRMin))
	}
	if sb.Fleet.HITLToday > 5 {
		out = append(out, fmt.Sprintf("%.0f human escalations today, above the 5/day budget", sb.Fleet.HITLToday))
	}
	if sb.Revenue.BudgetUsedPct >= 80 {
		out = append(out, fmt.Sprintf("autonomy spend at %.0f%% of daily budget", sb.Revenue.BudgetUsedPct))
	}
	if sb.Revenue.RevenuePerSpend > 0 && sb.Revenue.RevenuePerSpend < 1 {
		out = append(out, "revenue per $ of ops spend is under 1.0; review automation ROI")
	}
	return out
}

// narrative is the one-paragraph plain-language summary of the operation.
func narrative(sb *Scoreboard, live int) string {
	if live == 0 {
		return fmt.Sprintf("%d agents registered, none reporting live metrics yet.", sb.Fleet.Agents)
	}
	return fmt.Sprintf(
		"%d of %d agents reporting live. Fleet autonomy %.1f, auto-resolve %.1f%%, MTTR %.1fmin. "+
			"Weekly revenue $%.0f against $%.2f autonomous spend today (%.0f%% of budget). "+
			"%d escalations firing, %d approvals pending.",
		live, sb.Fleet.Agents, sb.Fleet.AvgScore, sb.Fleet.AutoResolvePct, sb.Fleet.MTTRMin,
		sb.Revenue.WeeklyUSD, sb.Revenue.SpendTodayUSD, sb.Revenue.BudgetUsedPct,
		sb.Risk.FiringEscalations, sb.Risk.PendingApprovals,
	)
}

// kpiOr returns the KPI value when the report carries it, otherwise the
// value parsed from the brief's metric lines.
func kpiOr(kpis map[string]float64, key string, brief float64) float64 {
	if v, ok := kpis[key]; ok {
		return v
	}
	return brief
}

func ownerFor(role string) string {
	if o, ok := ownerForRole[role]; ok {
		return o
	}
	return "CoS"
}
