package autonomy

import (
	"context"
	"math/rand"
	"testing"

	"github.com/cenkalti/backoff/v4"

	"github.com/complianceworxs/chiefstaff/pkg/types"
	"github.com/complianceworxs/chiefstaff/server/internal/config"
	"github.com/complianceworxs/chiefstaff/server/internal/constitution"
	"github.com/complianceworxs/chiefstaff/server/internal/escalate"
	"github.com/complianceworxs/chiefstaff/server/internal/finance"
	"github.com/complianceworxs/chiefstaff/server/internal/playbook"
)

// surePlaybook always succeeds; doomedPlaybook never does.
func surePlaybook(risk, costUSD float64) playbook.Playbook {
	return playbook.Playbook{
		ID:          "sure",
		Name:        "Sure thing",
		Categories:  []string{types.CategoryInfrastructure},
		MinSeverity: types.SeverityInfo,
		ImpactUSD:   200,
		Risk:        risk,
		Steps: []playbook.Step{
			{Name: "fix", Action: "fix_it", SuccessProb: 1, CostUSD: costUSD},
			{Name: "check", Action: "check_it", SuccessProb: 1},
		},
	}
}

func doomedPlaybook() playbook.Playbook {
	return playbook.Playbook{
		ID:          "doomed",
		Name:        "Doomed",
		Categories:  []string{types.CategoryInfrastructure},
		MinSeverity: types.SeverityInfo,
		ImpactUSD:   200,
		Risk:        0.1,
		Steps: []playbook.Step{
			{Name: "fail", Action: "fail_it", SuccessProb: 0},
		},
	}
}

func newTestPipeline(t *testing.T, cfg config.AutonomyConfig, pbs []playbook.Playbook) (*Pipeline, *finance.Tracker) {
	t.Helper()
	val, err := constitution.New(config.ConstitutionConfig{MaxActionSpendUSD: 25})
	if err != nil {
		t.Fatal(err)
	}
	tracker := finance.New(config.FinanceConfig{DailyBudgetUSD: 1000, WarnPct: 80})
	esc := escalate.New(config.EscalationsConfig{})
	p := New(cfg, playbook.NewSelector(pbs, 0), val, esc, tracker)
	p.exec.rng = rand.New(rand.NewSource(1))
	p.exec.newBackoff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return p, tracker
}

func infraSignal() *types.Signal {
	return &types.Signal{
		ID:         "sig-1",
		Source:     "coo-1",
		Category:   types.CategoryInfrastructure,
		Severity:   types.SeverityCritical,
		Title:      "api outage",
		Confidence: 0.9,
	}
}

func tier(n int) config.AutonomyConfig {
	return config.AutonomyConfig{Tier: n, MaxRetries: 2, RiskThreshold: 0.5, QueueCap: 10}
}

func TestHandle_Tier2Executes(t *testing.T) {
	p, tracker := newTestPipeline(t, tier(2), []playbook.Playbook{surePlaybook(0.3, 4)})

	rec := p.Handle(context.Background(), infraSignal())
	if rec.Outcome != OutcomeExecuted {
		t.Fatalf("Outcome: got %q, want executed (err %q)", rec.Outcome, rec.Error)
	}
	if len(rec.Steps) != 2 || !rec.Steps[0].OK || !rec.Steps[1].OK {
		t.Errorf("Steps: got %+v", rec.Steps)
	}
	if !rec.Verified {
		t.Error("Verified: want true when Verify is nil")
	}
	if got := tracker.Summarize(0).DayTotalUSD; got != 4 {
		t.Errorf("spend recorded: got %v, want 4", got)
	}
	if len(p.Decisions(0)) != 1 {
		t.Errorf("Decisions: got %d, want 1", len(p.Decisions(0)))
	}
}

func TestHandle_Tier1Queues(t *testing.T) {
	p, _ := newTestPipeline(t, tier(1), []playbook.Playbook{surePlaybook(0.1, 0)})

	rec := p.Handle(context.Background(), infraSignal())
	if rec.Outcome != OutcomeQueued {
		t.Fatalf("Outcome: got %q, want queued", rec.Outcome)
	}
	approvals := p.Approvals()
	if len(approvals) != 1 || approvals[0].PlaybookID != "sure" {
		t.Fatalf("Approvals: got %+v", approvals)
	}
	if approvals[0].Reason == "" {
		t.Error("Reason: want a hold reason")
	}
}

func TestHandle_Tier2HighRiskQueues(t *testing.T) {
	p, _ := newTestPipeline(t, tier(2), []playbook.Playbook{surePlaybook(0.8, 0)})

	rec := p.Handle(context.Background(), infraSignal())
	if rec.Outcome != OutcomeQueued {
		t.Fatalf("Outcome: got %q, want queued for risk above threshold", rec.Outcome)
	}
}

func TestHandle_Tier3ExecutesHighRisk(t *testing.T) {
	p, _ := newTestPipeline(t, tier(3), []playbook.Playbook{surePlaybook(0.9, 0)})

	rec := p.Handle(context.Background(), infraSignal())
	if rec.Outcome != OutcomeExecuted {
		t.Fatalf("Outcome: got %q, want executed at tier 3", rec.Outcome)
	}
}

func TestHandle_SpendCapBlocks(t *testing.T) {
	p, _ := newTestPipeline(t, tier(3), []playbook.Playbook{surePlaybook(0.1, 30)})

	rec := p.Handle(context.Background(), infraSignal())
	if rec.Outcome != OutcomeBlocked {
		t.Fatalf("Outcome: got %q, want blocked", rec.Outcome)
	}
	if len(rec.Violations) == 0 || rec.Violations[0].Rule != "spend_cap" {
		t.Errorf("Violations: got %+v", rec.Violations)
	}
}

func TestHandle_NoPlaybook(t *testing.T) {
	p, _ := newTestPipeline(t, tier(2), []playbook.Playbook{surePlaybook(0.1, 0)})

	sig := infraSignal()
	sig.Category = types.CategoryRevenue
	rec := p.Handle(context.Background(), sig)
	if rec.Outcome != OutcomeNoPlaybook {
		t.Fatalf("Outcome: got %q, want no_playbook", rec.Outcome)
	}
}

func TestHandle_StepFailureExhaustsRetries(t *testing.T) {
	p, _ := newTestPipeline(t, tier(3), []playbook.Playbook{doomedPlaybook()})

	rec := p.Handle(context.Background(), infraSignal())
	if rec.Outcome != OutcomeFailed {
		t.Fatalf("Outcome: got %q, want failed", rec.Outcome)
	}
	// MaxRetries 2 means 3 attempts total.
	if len(rec.Steps) != 1 || rec.Steps[0].Attempts != 3 || rec.Steps[0].OK {
		t.Errorf("Steps: got %+v", rec.Steps)
	}
	if rec.Error == "" {
		t.Error("Error: want populated")
	}
}

func TestHandle_Unverified(t *testing.T) {
	p, _ := newTestPipeline(t, tier(3), []playbook.Playbook{surePlaybook(0.1, 0)})
	p.Verify = func(*types.Signal) bool { return false }

	rec := p.Handle(context.Background(), infraSignal())
	if rec.Outcome != OutcomeUnverified {
		t.Fatalf("Outcome: got %q, want unverified", rec.Outcome)
	}
	if rec.Verified {
		t.Error("Verified: want false")
	}
}

func TestApproveRunsQueuedPlaybook(t *testing.T) {
	p, _ := newTestPipeline(t, tier(1), []playbook.Playbook{surePlaybook(0.1, 0)})

	queued := p.Handle(context.Background(), infraSignal())
	rec, err := p.Approve(context.Background(), queued.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if rec.Outcome != OutcomeExecuted {
		t.Errorf("Outcome: got %q, want executed", rec.Outcome)
	}
	if len(p.Approvals()) != 0 {
		t.Error("queue should be empty after approval")
	}
	if _, err := p.Approve(context.Background(), queued.ID); err == nil {
		t.Error("second Approve of same id should fail")
	}
}

func TestRejectDiscardsQueuedPlaybook(t *testing.T) {
	p, _ := newTestPipeline(t, tier(1), []playbook.Playbook{surePlaybook(0.1, 0)})

	queued := p.Handle(context.Background(), infraSignal())
	rec, err := p.Reject(queued.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rec.Outcome != OutcomeRejected {
		t.Errorf("Outcome: got %q, want rejected", rec.Outcome)
	}
	if len(p.Approvals()) != 0 {
		t.Error("queue should be empty after rejection")
	}
}

func TestQueueEvictionRecordsRejection(t *testing.T) {
	cfg := tier(1)
	cfg.QueueCap = 1
	p, _ := newTestPipeline(t, cfg, []playbook.Playbook{surePlaybook(0.1, 0)})

	first := infraSignal()
	second := infraSignal()
	second.ID = "sig-2"
	second.Title = "second outage"
	p.Handle(context.Background(), first)
	p.Handle(context.Background(), second)

	if got := len(p.Approvals()); got != 1 {
		t.Fatalf("Approvals: got %d, want 1", got)
	}
	if p.Approvals()[0].Signal.ID != "sig-2" {
		t.Error("oldest entry should have been evicted")
	}

	var sawEviction bool
	for _, d := range p.Decisions(0) {
		if d.Outcome == OutcomeRejected && d.SignalID == "sig-1" {
			sawEviction = true
		}
	}
	if !sawEviction {
		t.Error("eviction should leave a rejected decision record")
	}
}

func TestDecisionLogBounded(t *testing.T) {
	p, _ := newTestPipeline(t, tier(3), []playbook.Playbook{surePlaybook(0.1, 0)})

	sig := infraSignal()
	for i := 0; i < decisionLogCap+50; i++ {
		p.Handle(context.Background(), sig)
	}
	if got := len(p.Decisions(0)); got != decisionLogCap {
		t.Errorf("Decisions: got %d, want %d", got, decisionLogCap)
	}
	if got := len(p.Decisions(5)); got != 5 {
		t.Errorf("Decisions(5): got %d", got)
	}
}

func TestApprovalQueue_TinyCap(t *testing.T) {
	// cap <= 0 clamps to 1 instead of evicting from an empty buffer.
	q := newApprovalQueue(0)
	if ev := q.push(&Approval{ID: "a"}); ev != nil {
		t.Fatalf("first push evicted %+v", ev)
	}
	ev := q.push(&Approval{ID: "b"})
	if ev == nil || ev.ID != "a" {
		t.Fatalf("second push: got %+v, want eviction of a", ev)
	}
	if q.len() != 1 {
		t.Errorf("len: got %d, want 1", q.len())
	}
}
