package metrics

import (
	"log/slog"
	"net/http"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Snapshot is the server state the exporter flattens into metric families.
type Snapshot struct {
	// AgentStates counts live agents per autonomy state.
	AgentStates map[string]int

	// FleetScore is the average autonomy score across live agents.
	FleetScore float64

	// DecisionOutcomes counts retained decision records per outcome.
	DecisionOutcomes map[string]int

	EscalationsFiring int
	ApprovalsPending  int
	SpendTodayUSD     float64
	BudgetUsedPct     float64
	WSClients         int
}

// Handler serves GET /metrics in Prometheus text exposition format.
// Everything is exported as gauges over the server's in-memory state; there
// is no internal counter registry to keep in sync.
type Handler struct {
	source func() Snapshot
}

// NewHandler creates a Handler. source is called once per scrape.
func NewHandler(source func() Snapshot) *Handler {
	return &Handler{source: source}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := h.source()
	fams := families(snap)

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, fam := range fams {
		if err := enc.Encode(fam); err != nil {
			slog.Error("metrics: encode failed", "family", fam.GetName(), "err", err)
			return
		}
	}
}

// families flattens a Snapshot into metric families, sorted by name for a
// stable exposition.
func families(snap Snapshot) []*dto.MetricFamily {
	fams := []*dto.MetricFamily{
		gaugeFam("chiefstaff_fleet_autonomy_score",
			"Average autonomy score across live agents (0-100).",
			gauge(snap.FleetScore, nil)),
		gaugeFam("chiefstaff_escalations_firing",
			"Escalations currently firing.",
			gauge(float64(snap.EscalationsFiring), nil)),
		gaugeFam("chiefstaff_approvals_pending",
			"Playbook runs waiting for human approval.",
			gauge(float64(snap.ApprovalsPending), nil)),
		gaugeFam("chiefstaff_spend_today_usd",
			"Autonomous spend recorded today.",
			gauge(snap.SpendTodayUSD, nil)),
		gaugeFam("chiefstaff_budget_used_pct",
			"Share of the daily budget used, in percent.",
			gauge(snap.BudgetUsedPct, nil)),
		gaugeFam("chiefstaff_ws_clients",
			"Connected dashboard WebSocket clients.",
			gauge(float64(snap.WSClients), nil)),
	}

	agents := gaugeFam("chiefstaff_agents",
		"Live agents per autonomy state.")
	for _, state := range sortedKeys(snap.AgentStates) {
		agents.Metric = append(agents.Metric,
			gauge(float64(snap.AgentStates[state]), map[string]string{"state": state}))
	}
	fams = append(fams, agents)

	decisions := gaugeFam("chiefstaff_decisions",
		"Retained pipeline decision records per outcome.")
	for _, outcome := range sortedKeys(snap.DecisionOutcomes) {
		decisions.Metric = append(decisions.Metric,
			gauge(float64(snap.DecisionOutcomes[outcome]), map[string]string{"outcome": outcome}))
	}
	fams = append(fams, decisions)

	sort.Slice(fams, func(i, j int) bool { return fams[i].GetName() < fams[j].GetName() })
	return fams
}

func gaugeFam(name, help string, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   strPtr(name),
		Help:   strPtr(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: metrics,
	}
}

func gauge(v float64, labels map[string]string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: &v}}
	for _, k := range sortedKeys(labels) {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  strPtr(k),
			Value: strPtr(labels[k]),
		})
	}
	return m
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func strPtr(s string) *string { return &s }
