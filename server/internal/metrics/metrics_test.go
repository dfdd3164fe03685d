package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/common/expfmt"
)

func testSnapshot() Snapshot {
	return Snapshot{
		AgentStates:       map[string]int{"autonomous": 3, "supervised": 1},
		FleetScore:        84.5,
		DecisionOutcomes:  map[string]int{"executed": 7, "queued": 2},
		EscalationsFiring: 1,
		ApprovalsPending:  2,
		SpendTodayUSD:     31.4,
		BudgetUsedPct:     41.9,
		WSClients:         4,
	}
}

func scrape(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(testSnapshot)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec
}

func TestServeHTTP_ParsesAsExposition(t *testing.T) {
	rec := scrape(t)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	var parser expfmt.TextParser
	fams, err := parser.TextToMetricFamilies(rec.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}

	for _, name := range []string{
		"chiefstaff_fleet_autonomy_score",
		"chiefstaff_agents",
		"chiefstaff_decisions",
		"chiefstaff_escalations_firing",
		"chiefstaff_approvals_pending",
		"chiefstaff_spend_today_usd",
		"chiefstaff_budget_used_pct",
		"chiefstaff_ws_clients",
	} {
		if _, ok := fams[name]; !ok {
			t.Errorf("missing family %q", name)
		}
	}

	if got := fams["chiefstaff_fleet_autonomy_score"].GetMetric()[0].GetGauge().GetValue(); got != 84.5 {
		t.Errorf("fleet score: got %v, want 84.5", got)
	}
	if got := len(fams["chiefstaff_agents"].GetMetric()); got != 2 {
		t.Errorf("agents series: got %d, want 2", got)
	}
}

func TestServeHTTP_LabelsCarryThrough(t *testing.T) {
	rec := scrape(t)
	body := rec.Body.String()

	if !strings.Contains(body, `chiefstaff_agents{state="autonomous"} 3`) {
		t.Errorf("missing labelled agents series in:\n%s", body)
	}
	if !strings.Contains(body, `chiefstaff_decisions{outcome="executed"} 7`) {
		t.Errorf("missing labelled decisions series in:\n%s", body)
	}
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	h := NewHandler(testSnapshot)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rec.Code)
	}
}
