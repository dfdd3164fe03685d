package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/complianceworxs/chiefstaff/pkg/types"
	"github.com/complianceworxs/chiefstaff/server/internal/autonomy"
	"github.com/complianceworxs/chiefstaff/server/internal/checklist"
	"github.com/complianceworxs/chiefstaff/server/internal/config"
	"github.com/complianceworxs/chiefstaff/server/internal/constitution"
	"github.com/complianceworxs/chiefstaff/server/internal/escalate"
	"github.com/complianceworxs/chiefstaff/server/internal/finance"
	"github.com/complianceworxs/chiefstaff/server/internal/ingest"
	"github.com/complianceworxs/chiefstaff/server/internal/playbook"
	"github.com/complianceworxs/chiefstaff/server/internal/scoreboard"
	"github.com/complianceworxs/chiefstaff/server/internal/signal"
	"github.com/complianceworxs/chiefstaff/server/internal/store"
)

// newTestHandler wires a full in-memory server at the given autonomy tier.
func newTestHandler(t *testing.T, tier int) http.Handler {
	t.Helper()

	st := store.New(5 * time.Minute)
	sigs := store.NewSignalLog(100)
	cl := signal.NewClassifier()
	val, err := constitution.New(config.ConstitutionConfig{MaxActionSpendUSD: 50})
	if err != nil {
		t.Fatal(err)
	}
	tr := finance.New(config.FinanceConfig{DailyBudgetUSD: 100, WarnPct: 80})
	esc := escalate.New(config.EscalationsConfig{Rules: config.DefaultEscalationRules()})
	sel := playbook.NewSelector(playbook.Builtin(), 0)
	p := autonomy.New(
		config.AutonomyConfig{Tier: tier, MaxRetries: 1, RiskThreshold: 0.5, QueueCap: 10},
		sel, val, esc, tr)
	ing := ingest.New(st, sigs, cl, p, esc, tr)
	p.Verify = ingest.NewVerifier(st)

	chk := checklist.NewRunner(config.ChecklistConfig{Interval: time.Hour}, nil,
		func() *scoreboard.Scoreboard {
			return scoreboard.Build(scoreboard.Input{
				Entries: st.List(),
				Finance: tr.Summarize(0),
			}, time.Now())
		})

	return New(st, sigs, cl, ing, p, esc, tr, sel, chk)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func sampleReport(agentID string) *types.AgentReport {
	return &types.AgentReport{
		AgentID:       agentID,
		Role:          types.RoleCOO,
		Timestamp:     time.Now().UTC(),
		State:         types.StateAutonomous,
		AutonomyScore: 90,
		KPIs: map[string]float64{
			types.KPIAutoResolvePct: 92,
			types.KPIMTTRMin:        4,
			types.KPIHITLToday:      2,
			types.KPIAlignmentPct:   80,
			types.KPIQueueBacklog:   2,
		},
	}
}

func TestHealth_Empty(t *testing.T) {
	h := newTestHandler(t, 2)
	rec := doJSON(t, h, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var resp HealthResponse
	decode(t, rec, &resp)
	if resp.State != "unknown" || resp.AgentCount != 0 {
		t.Errorf("got %+v, want unknown/0", resp)
	}
	if resp.Tier != 2 {
		t.Errorf("Tier: got %d, want 2", resp.Tier)
	}
}

func TestReportsAndAgents(t *testing.T) {
	h := newTestHandler(t, 2)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/reports", sampleReport("coo-1"))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST reports: got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/agents", nil)
	var agents []AgentResponse
	decode(t, rec, &agents)
	if len(agents) != 1 || agents[0].AgentID != "coo-1" {
		t.Fatalf("agents: got %+v", agents)
	}
	if len(agents[0].Diagnostics) == 0 {
		t.Error("Diagnostics: want at least the all-clear hint")
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/agents/coo-1", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("GET agent: got %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/v1/agents/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET missing agent: got %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/health", nil)
	var health HealthResponse
	decode(t, rec, &health)
	if health.AgentCount != 1 || health.AutonomousCount != 1 {
		t.Errorf("health: got %+v", health)
	}
	if health.State != types.StateAutonomous {
		t.Errorf("health.State: got %q", health.State)
	}
}

func TestReports_RejectsBadBody(t *testing.T) {
	h := newTestHandler(t, 2)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json: got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/reports", &types.AgentReport{AgentID: "x", Role: "cfo"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad role: got %d", rec.Code)
	}
}

func TestSignals_PostClassifiesAndDecides(t *testing.T) {
	h := newTestHandler(t, 2)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/signals", SignalRequest{
		Source: "coo-1",
		Title:  "checkout outage",
		Detail: "5xx spike, service unreachable",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST signals: got %d (%s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Signal   *types.Signal            `json:"signal"`
		Decision *autonomy.DecisionRecord `json:"decision"`
	}
	decode(t, rec, &resp)
	if resp.Signal.Category != types.CategoryInfrastructure {
		t.Errorf("Category: got %q", resp.Signal.Category)
	}
	if resp.Decision == nil || resp.Decision.Outcome == "" {
		t.Errorf("Decision: got %+v", resp.Decision)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/signals", nil)
	var sigs []*types.Signal
	decode(t, rec, &sigs)
	if len(sigs) != 1 {
		t.Errorf("GET signals: got %d", len(sigs))
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/decisions", nil)
	var decisions []*autonomy.DecisionRecord
	decode(t, rec, &decisions)
	if len(decisions) != 1 {
		t.Errorf("GET decisions: got %d", len(decisions))
	}
}

func TestSignals_PostRequiresTitle(t *testing.T) {
	h := newTestHandler(t, 2)
	rec := doJSON(t, h, http.MethodPost, "/api/v1/signals", SignalRequest{Detail: "no title"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rec.Code)
	}
}

func TestApprovalFlow(t *testing.T) {
	h := newTestHandler(t, 1) // advisory: everything queues

	rec := doJSON(t, h, http.MethodPost, "/api/v1/signals", SignalRequest{
		Source: "coo-1",
		Title:  "backlog stuck",
		Detail: "queue delay, overdue items",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST signals: got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/approvals", nil)
	var approvals []*autonomy.Approval
	decode(t, rec, &approvals)
	if len(approvals) != 1 {
		t.Fatalf("approvals: got %d, want 1", len(approvals))
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/approvals/"+approvals[0].ID,
		ApprovalRequest{Action: "approve"})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: got %d (%s)", rec.Code, rec.Body.String())
	}
	var decision autonomy.DecisionRecord
	decode(t, rec, &decision)
	if decision.Outcome == autonomy.OutcomeQueued {
		t.Errorf("Outcome: still queued after approval")
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/approvals/"+approvals[0].ID,
		ApprovalRequest{Action: "approve"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("second approve: got %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/approvals/xyz",
		ApprovalRequest{Action: "destroy"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad action: got %d, want 400", rec.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	h := newTestHandler(t, 2)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/validate",
		ValidateRequest{Draft: "Sign up for guaranteed results, 100% safe."})
	if rec.Code != http.StatusOK {
		t.Fatalf("validate: got %d", rec.Code)
	}
	var resp ValidateResponse
	decode(t, rec, &resp)
	if resp.Allowed || len(resp.Violations) == 0 {
		t.Errorf("got %+v, want blocked with violations", resp)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/validate", ValidateRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty draft: got %d", rec.Code)
	}
}

func TestFinanceEndpoints(t *testing.T) {
	h := newTestHandler(t, 2)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/finance/spend", SpendRequest{
		Source:    "cmo-1",
		Category:  types.CategoryMarketing,
		AmountUSD: 12.5,
		Note:      "ad boost",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST spend: got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/finance", nil)
	var sum finance.Summary
	decode(t, rec, &sum)
	if sum.DayTotalUSD != 12.5 {
		t.Errorf("DayTotalUSD: got %v", sum.DayTotalUSD)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/finance/spend", SpendRequest{AmountUSD: -1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative spend: got %d", rec.Code)
	}
}

func TestScoreboardChecklistSnapshot(t *testing.T) {
	h := newTestHandler(t, 2)
	doJSON(t, h, http.MethodPost, "/api/v1/reports", sampleReport("coo-1"))

	rec := doJSON(t, h, http.MethodGet, "/api/v1/scoreboard", nil)
	var sb scoreboard.Scoreboard
	decode(t, rec, &sb)
	if sb.Fleet.Agents != 1 {
		t.Errorf("scoreboard agents: got %d", sb.Fleet.Agents)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/checklist", nil)
	var c checklist.Checklist
	decode(t, rec, &c)
	if len(c.Items) == 0 {
		t.Error("checklist: want items")
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/snapshot", nil)
	var snap map[string]json.RawMessage
	decode(t, rec, &snap)
	for _, key := range []string{"agents", "scoreboard", "approvals", "escalations", "generated_at"} {
		if _, ok := snap[key]; !ok {
			t.Errorf("snapshot missing %q", key)
		}
	}
}

func TestPlaybooksEndpoint(t *testing.T) {
	h := newTestHandler(t, 2)
	rec := doJSON(t, h, http.MethodGet, "/api/v1/playbooks", nil)
	var pbs []playbook.Playbook
	decode(t, rec, &pbs)
	if len(pbs) != len(playbook.Builtin()) {
		t.Errorf("playbooks: got %d", len(pbs))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, 2)
	for _, path := range []string{
		"/api/v1/health", "/api/v1/agents", "/api/v1/scoreboard",
		"/api/v1/decisions", "/api/v1/escalations", "/api/v1/playbooks",
		"/api/v1/finance", "/api/v1/checklist", "/api/v1/snapshot",
	} {
		rec := doJSON(t, h, http.MethodDelete, path, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: got %d, want 405", path, rec.Code)
		}
	}
	rec := doJSON(t, h, http.MethodGet, "/api/v1/validate", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET validate: got %d, want 405", rec.Code)
	}
}

func TestSignalsLimit(t *testing.T) {
	h := newTestHandler(t, 2)
	for i := 0; i < 4; i++ {
		doJSON(t, h, http.MethodPost, "/api/v1/signals", SignalRequest{
			Source: "api",
			Title:  fmt.Sprintf("campaign ctr report %d", i),
		})
	}
	rec := doJSON(t, h, http.MethodGet, "/api/v1/signals?limit=2", nil)
	var sigs []*types.Signal
	decode(t, rec, &sigs)
	if len(sigs) != 2 {
		t.Errorf("limit=2: got %d", len(sigs))
	}
}
