package types

import "time"

// Executive roles in the simulated fleet. The CEO is a human consumer of the
// dashboard and never appears as an agent role.
const (
	RoleCOO         = "coo"
	RoleCRO         = "cro"
	RoleCMO         = "cmo"
	RoleCCO         = "cco"
	RoleContent     = "content_manager"
	RoleMarketIntel = "market_intelligence"
	RoleGovernance  = "governance"
)

// Roles lists every valid agent role.
var Roles = []string{
	RoleCOO, RoleCRO, RoleCMO, RoleCCO,
	RoleContent, RoleMarketIntel, RoleGovernance,
}

// ValidRole reports whether role is one of the known executive roles.
func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Canonical KPI names carried in AgentReport.KPIs. All rates are percentages
// in the range 0–100 unless the name says otherwise.
const (
	KPIAutoResolvePct = "auto_resolve_pct" // incidents resolved without a human
	KPIMTTRMin        = "mttr_min"         // mean time to resolution, minutes
	KPIHITLToday      = "hitl_today"       // human-in-the-loop escalations today
	KPIAlignmentPct   = "alignment_pct"    // work tied to strategic objectives
	KPISpendUSD       = "spend_usd"        // API/token spend this cycle
	KPIRevenueUSD     = "revenue_usd"      // revenue attributed this cycle
	KPITasksHandled   = "tasks_handled"    // tasks processed this cycle
	KPIQueueBacklog   = "queue_backlog"    // items waiting in the work queue
)

// Autonomy states derived from the composite autonomy score.
const (
	StateAutonomous  = "autonomous"  // operating without supervision
	StateSupervised  = "supervised"  // operating, HITL review recommended
	StateManual      = "manual"      // autonomy revoked, human drives
	StateCalibrating = "calibrating" // no baseline yet, first cycles
)

// AgentReport is one agent's periodic self-report, POSTed to the server as
// JSON. Callers must not modify a report after handing it to a store.
type AgentReport struct {
	AgentID   string    `json:"agent_id"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// State is the agent's autonomy state: autonomous | supervised | manual |
	// calibrating.
	State string `json:"state"`

	// AutonomyScore is the composite 0–100 score behind State.
	AutonomyScore float64 `json:"autonomy_score"`

	// KPIs holds the derived metrics for this cycle, keyed by the KPI*
	// constants above.
	KPIs map[string]float64 `json:"kpis"`

	// Brief is the rendered operational brief for this role and cycle.
	// The server's scoreboard mappers parse actions and insights out of it.
	Brief string `json:"brief,omitempty"`

	// ErrorMessage is non-empty when the observation cycle failed; the server
	// treats such a report as a degraded-health signal.
	ErrorMessage string `json:"error_message,omitempty"`
}

// Signal severities, ordered weakest to strongest.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// SeverityRank maps a severity to its ordering; unknown severities rank 0.
func SeverityRank(sev string) int {
	switch sev {
	case SeverityWarning:
		return 1
	case SeverityCritical:
		return 2
	default:
		return 0
	}
}

// Signal categories the classifier can assign.
const (
	CategoryOperations     = "operations"
	CategoryRevenue        = "revenue"
	CategoryMarketing      = "marketing"
	CategoryCompliance     = "compliance"
	CategoryContent        = "content"
	CategoryFinance        = "finance"
	CategoryInfrastructure = "infrastructure"
)

// Signal is one classified business event flowing through the remediation
// pipeline. Source identifies who raised it: an agent ID, "finance-monitor",
// or "api" for manually injected signals.
type Signal struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Category  string    `json:"category"`
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail,omitempty"`
	Metric    string    `json:"metric,omitempty"` // KPI name when threshold-derived
	Value     float64   `json:"value,omitempty"`  // triggering metric value
	// Confidence is the classifier's certainty in Category, in [0,1].
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}
