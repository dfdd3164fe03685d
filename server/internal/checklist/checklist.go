package checklist

import (
	"fmt"
	"time"

	"github.com/complianceworxs/chiefstaff/server/internal/scoreboard"
)

// Item statuses.
const (
	StatusGreen  = "green"
	StatusYellow = "yellow"
	StatusRed    = "red"
)

// Item is one line of the checklist.
type Item struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// Checklist is the periodic autonomy review: can the operation keep running
// itself, and where does it need a human this week.
type Checklist struct {
	GeneratedAt time.Time `json:"generated_at"`
	Items       []Item    `json:"items"`
	Summary     string    `json:"summary"`
}

// Build derives the checklist from the current scoreboard.
func Build(sb *scoreboard.Scoreboard, now time.Time) *Checklist {
	c := &Checklist{GeneratedAt: now.UTC()}

	c.add("Auto-resolve rate", band(sb.Fleet.AutoResolvePct, 85, 70),
		fmt.Sprintf("%.1f%% of incidents resolved without a human (target ≥85%%)", sb.Fleet.AutoResolvePct))
	c.add("MTTR", bandInverted(sb.Fleet.MTTRMin, 5, 7.5),
		fmt.Sprintf("%.1fmin mean time to resolution (target <5min)", sb.Fleet.MTTRMin))
	c.add("Human escalations", bandInverted(sb.Fleet.HITLToday, 5, 8),
		fmt.Sprintf("%.0f HITL escalations today (budget 5/day)", sb.Fleet.HITLToday))
	c.add("Spend discipline", bandInverted(sb.Revenue.BudgetUsedPct, 80, 100),
		fmt.Sprintf("%.0f%% of daily budget used", sb.Revenue.BudgetUsedPct))

	escStatus := StatusGreen
	if sb.Risk.FiringEscalations > 0 {
		escStatus = StatusYellow
	}
	if hasCritical(sb) {
		escStatus = StatusRed
	}
	c.add("Open escalations", escStatus,
		fmt.Sprintf("%d firing, %d approvals pending", sb.Risk.FiringEscalations, sb.Risk.PendingApprovals))

	fleetStatus := StatusGreen
	if sb.Fleet.States["manual"] > 0 {
		fleetStatus = StatusRed
	} else if sb.Fleet.States["supervised"] > 0 {
		fleetStatus = StatusYellow
	}
	c.add("Fleet autonomy states", fleetStatus, statesDetail(sb))

	c.Summary = summary(c.Items)
	return c
}

func (c *Checklist) add(name, status, detail string) {
	c.Items = append(c.Items, Item{Name: name, Status: status, Detail: detail})
}

// band grades a higher-is-better value: green at or above ok, yellow at or
// above warn, red below.
func band(v, ok, warn float64) string {
	switch {
	case v >= ok:
		return StatusGreen
	case v >= warn:
		return StatusYellow
	default:
		return StatusRed
	}
}

// bandInverted grades a lower-is-better value.
func bandInverted(v, ok, warn float64) string {
	switch {
	case v <= ok:
		return StatusGreen
	case v <= warn:
		return StatusYellow
	default:
		return StatusRed
	}
}

func hasCritical(sb *scoreboard.Scoreboard) bool {
	for _, a := range sb.Actions {
		if a.Severity == "critical" {
			return true
		}
	}
	return false
}

func statesDetail(sb *scoreboard.Scoreboard) string {
	return fmt.Sprintf("%d autonomous, %d supervised, %d manual, %d calibrating",
		sb.Fleet.States["autonomous"], sb.Fleet.States["supervised"],
		sb.Fleet.States["manual"], sb.Fleet.States["calibrating"])
}

func summary(items []Item) string {
	greens := 0
	for _, it := range items {
		if it.Status == StatusGreen {
			greens++
		}
	}
	switch {
	case greens == len(items):
		return fmt.Sprintf("%d/%d green — the operation is running itself", greens, len(items))
	case greens >= len(items)/2:
		return fmt.Sprintf("%d/%d green — review the yellow items this week", greens, len(items))
	default:
		return fmt.Sprintf("%d/%d green — autonomy is degraded, intervention needed", greens, len(items))
	}
}
