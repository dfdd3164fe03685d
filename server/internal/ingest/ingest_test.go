package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/complianceworxs/chiefstaff/pkg/types"
	"github.com/complianceworxs/chiefstaff/server/internal/autonomy"
	"github.com/complianceworxs/chiefstaff/server/internal/config"
	"github.com/complianceworxs/chiefstaff/server/internal/constitution"
	"github.com/complianceworxs/chiefstaff/server/internal/escalate"
	"github.com/complianceworxs/chiefstaff/server/internal/finance"
	"github.com/complianceworxs/chiefstaff/server/internal/playbook"
	"github.com/complianceworxs/chiefstaff/server/internal/signal"
	"github.com/complianceworxs/chiefstaff/server/internal/store"
)

type fixture struct {
	ingestor *Ingestor
	store    *store.Store
	signals  *store.SignalLog
	pipeline *autonomy.Pipeline
	tracker  *finance.Tracker
	now      *time.Time
}

func newFixture(t *testing.T, budget float64) *fixture {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	st := store.New(5 * time.Minute)
	sigs := store.NewSignalLog(100)
	cl := signal.NewClassifier()
	val, err := constitution.New(config.ConstitutionConfig{MaxActionSpendUSD: 50})
	if err != nil {
		t.Fatal(err)
	}
	tr := finance.New(config.FinanceConfig{DailyBudgetUSD: budget, WarnPct: 80})
	esc := escalate.New(config.EscalationsConfig{Rules: config.DefaultEscalationRules()})
	p := autonomy.New(
		config.AutonomyConfig{Tier: 3, MaxRetries: 1, RiskThreshold: 0.5, QueueCap: 10},
		playbook.NewSelector(playbook.Builtin(), 0), val, esc, tr)

	ing := New(st, sigs, cl, p, esc, tr)
	ing.now = func() time.Time { return now }
	return &fixture{ingestor: ing, store: st, signals: sigs, pipeline: p, tracker: tr, now: &now}
}

func healthyReport(agentID string) *types.AgentReport {
	return &types.AgentReport{
		AgentID:       agentID,
		Role:          types.RoleCOO,
		State:         types.StateAutonomous,
		AutonomyScore: 90,
		KPIs: map[string]float64{
			types.KPIAutoResolvePct: 92,
			types.KPIMTTRMin:        4,
			types.KPIHITLToday:      2,
			types.KPIAlignmentPct:   80,
			types.KPIQueueBacklog:   2,
			types.KPISpendUSD:       1.5,
		},
	}
}

func TestIngest_StoresReport(t *testing.T) {
	f := newFixture(t, 100)

	if err := f.ingestor.Ingest(context.Background(), healthyReport("coo-1")); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if _, ok := f.store.Get("coo-1"); !ok {
		t.Error("report not stored")
	}
	if got := f.tracker.Summarize(0).DayTotalUSD; got != 1.5 {
		t.Errorf("spend: got %v, want 1.5", got)
	}
	if f.signals.Len() != 0 {
		t.Errorf("healthy report derived %d signals", f.signals.Len())
	}
}

func TestIngest_Validation(t *testing.T) {
	f := newFixture(t, 100)

	if err := f.ingestor.Ingest(context.Background(), &types.AgentReport{Role: types.RoleCOO}); err == nil {
		t.Error("missing agent_id accepted")
	}
	if err := f.ingestor.Ingest(context.Background(), &types.AgentReport{AgentID: "x", Role: "cfo"}); err == nil {
		t.Error("unknown role accepted")
	}
}

func TestIngest_DerivesThresholdSignals(t *testing.T) {
	f := newFixture(t, 100)

	r := healthyReport("coo-1")
	r.KPIs[types.KPIMTTRMin] = 8
	r.KPIs[types.KPIQueueBacklog] = 9
	if err := f.ingestor.Ingest(context.Background(), r); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	sigs := f.signals.List(0)
	if len(sigs) != 2 {
		t.Fatalf("signals: got %d, want 2", len(sigs))
	}
	metrics := map[string]bool{}
	for _, s := range sigs {
		metrics[s.Metric] = true
		if s.Confidence != 1 {
			t.Errorf("threshold signal confidence: got %v", s.Confidence)
		}
	}
	if !metrics[types.KPIMTTRMin] || !metrics[types.KPIQueueBacklog] {
		t.Errorf("metrics: got %+v", metrics)
	}
	// The pipeline ran on the derived signals.
	if got := len(f.pipeline.Decisions(0)); got != 2 {
		t.Errorf("decisions: got %d, want 2", got)
	}
}

func TestIngest_SignalCooldown(t *testing.T) {
	f := newFixture(t, 100)

	r := healthyReport("coo-1")
	r.KPIs[types.KPIMTTRMin] = 8
	ctx := context.Background()
	f.ingestor.Ingest(ctx, r)
	f.ingestor.Ingest(ctx, r) // same breach, next cycle
	if f.signals.Len() != 1 {
		t.Errorf("signals: got %d, want 1 within cooldown", f.signals.Len())
	}

	*f.now = f.now.Add(signalCooldown + time.Minute)
	f.ingestor.Ingest(ctx, r)
	if f.signals.Len() != 2 {
		t.Errorf("signals: got %d, want 2 after cooldown", f.signals.Len())
	}
}

func TestIngest_BudgetSignal(t *testing.T) {
	f := newFixture(t, 10)

	r := healthyReport("coo-1")
	r.KPIs[types.KPISpendUSD] = 12 // blows the $10 budget in one cycle
	if err := f.ingestor.Ingest(context.Background(), r); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	var found *types.Signal
	for _, s := range f.signals.List(0) {
		if s.Metric == "budget_used_pct" {
			found = s
		}
	}
	if found == nil {
		t.Fatal("no budget signal derived")
	}
	if found.Severity != types.SeverityCritical || found.Category != types.CategoryFinance {
		t.Errorf("budget signal: got %s/%s", found.Category, found.Severity)
	}
}

func TestIngest_EvaluatesEscalations(t *testing.T) {
	f := newFixture(t, 100)

	r := healthyReport("coo-1")
	r.KPIs[types.KPIMTTRMin] = 9
	f.ingestor.Ingest(context.Background(), r)

	fired := false
	for _, esc := range f.ingestor.escalator.Active() {
		if esc.RuleName == "mttr-over-target" && esc.State == "firing" {
			fired = true
		}
	}
	if !fired {
		t.Error("mttr-over-target escalation did not fire")
	}
}

func TestIngest_OnReportHook(t *testing.T) {
	f := newFixture(t, 100)

	var got string
	f.ingestor.OnReport = func(r *types.AgentReport) { got = r.AgentID }
	f.ingestor.Ingest(context.Background(), healthyReport("coo-1"))
	if got != "coo-1" {
		t.Errorf("OnReport: got %q", got)
	}
}

func TestVerifier(t *testing.T) {
	st := store.New(5 * time.Minute)
	verify := NewVerifier(st)

	sig := &types.Signal{Source: "coo-1", Metric: types.KPIMTTRMin}

	// Agent not reporting: cannot re-check, counts as cleared.
	if !verify(sig) {
		t.Error("missing agent: want cleared")
	}

	r := healthyReport("coo-1")
	r.KPIs[types.KPIMTTRMin] = 8
	st.Put(r)
	if verify(sig) {
		t.Error("breach persists: want not cleared")
	}

	r2 := healthyReport("coo-1")
	r2.KPIs[types.KPIMTTRMin] = 3
	st.Put(r2)
	if !verify(sig) {
		t.Error("breach cleared: want cleared")
	}

	// Signals without a metric cannot be re-checked.
	if !verify(&types.Signal{Source: "coo-1"}) {
		t.Error("no metric: want cleared")
	}
}

func TestBudgetSignal_DirectSpendPath(t *testing.T) {
	f := newFixture(t, 100)

	// Spend booked outside report ingestion, the way the finance API does it.
	f.tracker.Record("api", types.CategoryOperations, 95, "contractor invoice")

	sigs := f.signals.List(0)
	if len(sigs) != 1 || sigs[0].Metric != "budget_used_pct" {
		t.Fatalf("signals: got %+v, want one budget signal", sigs)
	}
	if sigs[0].Severity != types.SeverityWarning {
		t.Errorf("severity: got %s, want warning", sigs[0].Severity)
	}
	if got := len(f.pipeline.Decisions(0)); got != 1 {
		t.Errorf("decisions: got %d, want 1", got)
	}

	// The warn latch must not swallow the later 100% crossing from a report.
	r := healthyReport("coo-1")
	r.KPIs[types.KPISpendUSD] = 10
	f.ingestor.Ingest(context.Background(), r)

	critical := false
	for _, s := range f.signals.List(0) {
		if s.Metric == "budget_used_pct" && s.Severity == types.SeverityCritical {
			critical = true
		}
	}
	if !critical {
		t.Error("no critical budget signal after the 100% crossing")
	}
}

func TestBudgetSignal_PlaybookSpendPath(t *testing.T) {
	st := store.New(5 * time.Minute)
	sigs := store.NewSignalLog(100)
	cl := signal.NewClassifier()
	val, err := constitution.New(config.ConstitutionConfig{MaxActionSpendUSD: 50})
	if err != nil {
		t.Fatal(err)
	}
	tr := finance.New(config.FinanceConfig{DailyBudgetUSD: 50, WarnPct: 80})
	esc := escalate.New(config.EscalationsConfig{Rules: config.DefaultEscalationRules()})
	pb := playbook.Playbook{
		ID: "drain-backlog", Name: "Drain backlog",
		Categories:  []string{types.CategoryInfrastructure},
		MinSeverity: types.SeverityInfo, ImpactUSD: 500, Risk: 0.1,
		Steps: []playbook.Step{{Name: "run", Action: "run", SuccessProb: 1, CostUSD: 45}},
	}
	p := autonomy.New(
		config.AutonomyConfig{Tier: 3, MaxRetries: 1, RiskThreshold: 0.5, QueueCap: 10},
		playbook.NewSelector([]playbook.Playbook{pb}, 0), val, esc, tr)
	ing := New(st, sigs, cl, p, esc, tr)

	sig := cl.Threshold("coo-1", types.CategoryInfrastructure, types.SeverityWarning,
		"resolution time over target", types.KPIMTTRMin, 9)
	rec := ing.Dispatch(context.Background(), sig)
	if rec.Outcome != autonomy.OutcomeExecuted {
		t.Fatalf("outcome: got %s, want executed", rec.Outcome)
	}

	// The step spend put the day at 90% of budget; the crossing must surface
	// as a finance signal with its own decision record.
	var budget *types.Signal
	for _, s := range sigs.List(0) {
		if s.Metric == "budget_used_pct" {
			budget = s
		}
	}
	if budget == nil {
		t.Fatal("no budget signal after playbook step spend")
	}
	if budget.Severity != types.SeverityWarning {
		t.Errorf("severity: got %s, want warning", budget.Severity)
	}
	if got := len(p.Decisions(0)); got != 2 {
		t.Errorf("decisions: got %d, want 2", got)
	}
}
