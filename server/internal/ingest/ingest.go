package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/complianceworxs/chiefstaff/pkg/types"
	"github.com/complianceworxs/chiefstaff/server/internal/autonomy"
	"github.com/complianceworxs/chiefstaff/server/internal/escalate"
	"github.com/complianceworxs/chiefstaff/server/internal/finance"
	"github.com/complianceworxs/chiefstaff/server/internal/signal"
	"github.com/complianceworxs/chiefstaff/server/internal/store"
)

// KPI thresholds that turn a report into a remediation signal. The same
// numbers back the verifier: a signal counts as cleared when the agent's
// latest report is back inside the threshold.
const (
	mttrTargetMin    = 5
	backlogThreshold = 5
)

// signalCooldown suppresses re-deriving the same metric signal for an agent
// that keeps reporting the same breach every cycle.
const signalCooldown = 10 * time.Minute

// Ingestor accepts agent reports and drives everything downstream: the
// report store, spend tracking, threshold signal derivation, the
// remediation pipeline, and escalation rule evaluation.
type Ingestor struct {
	store      *store.Store
	signals    *store.SignalLog
	classifier *signal.Classifier
	pipeline   *autonomy.Pipeline
	escalator  *escalate.Engine
	tracker    *finance.Tracker

	// OnReport, when set, is called after each accepted report. The server
	// uses it to push dashboard updates over WebSocket.
	OnReport func(r *types.AgentReport)

	mu      sync.Mutex
	lastSig map[string]time.Time // agentID+":"+metric -> last derivation
	now     func() time.Time
}

// New creates an Ingestor and registers it as the tracker's budget event
// sink, so threshold crossings become finance signals no matter which path
// recorded the spend (agent cycles, playbook steps, or the API).
func New(st *store.Store, sigs *store.SignalLog, cl *signal.Classifier,
	p *autonomy.Pipeline, esc *escalate.Engine, tr *finance.Tracker) *Ingestor {
	in := &Ingestor{
		store:      st,
		signals:    sigs,
		classifier: cl,
		pipeline:   p,
		escalator:  esc,
		tracker:    tr,
		lastSig:    make(map[string]time.Time),
		now:        time.Now,
	}
	tr.OnEvent = in.budgetEvent
	return in
}

// roleCategory maps an agent role to the spend/signal category its work
// belongs to.
var roleCategory = map[string]string{
	types.RoleCOO:         types.CategoryOperations,
	types.RoleCRO:         types.CategoryRevenue,
	types.RoleCMO:         types.CategoryMarketing,
	types.RoleCCO:         types.CategoryCompliance,
	types.RoleContent:     types.CategoryContent,
	types.RoleMarketIntel: types.CategoryMarketing,
	types.RoleGovernance:  types.CategoryCompliance,
}

// Ingest validates and processes one agent report.
func (in *Ingestor) Ingest(ctx context.Context, r *types.AgentReport) error {
	if r.AgentID == "" {
		return fmt.Errorf("ingest: agent_id is required")
	}
	if !types.ValidRole(r.Role) {
		return fmt.Errorf("ingest: unknown role %q", r.Role)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = in.now().UTC()
	}

	in.store.Put(r)
	slog.Debug("ingest: report accepted",
		"agent", r.AgentID,
		"role", r.Role,
		"state", r.State,
		"score", r.AutonomyScore,
	)

	in.recordSpend(r)
	in.deriveSignals(ctx, r)
	in.escalator.Evaluate(&escalate.Snapshot{
		Source:        r.AgentID,
		State:         r.State,
		AutonomyScore: r.AutonomyScore,
		KPIs:          r.KPIs,
		BudgetUsedPct: in.tracker.BudgetUsedPct(),
	})

	if in.OnReport != nil {
		in.OnReport(r)
	}
	return nil
}

// recordSpend books the report's per-cycle spend. Budget threshold crossings
// come back through budgetEvent via the tracker's event sink.
func (in *Ingestor) recordSpend(r *types.AgentReport) {
	spend := r.KPIs[types.KPISpendUSD]
	if spend <= 0 {
		return
	}
	in.tracker.Record(r.AgentID, categoryFor(r.Role), spend, "agent cycle spend")
}

// budgetEvent turns a budget threshold crossing into a finance signal for
// the pipeline. The tracker calls it for every crossing, whichever spend
// path triggered it.
func (in *Ingestor) budgetEvent(ev finance.Event) {
	sev := types.SeverityWarning
	title := "daily budget utilisation high"
	if ev.Level == "exceeded" {
		sev = types.SeverityCritical
		title = "daily budget exceeded"
	}
	sig := in.classifier.Threshold("server", types.CategoryFinance, sev, title,
		"budget_used_pct", ev.UsedPct)
	in.dispatch(context.Background(), sig)
}

// deriveSignals turns KPI threshold breaches in the report into signals for
// the remediation pipeline, with a per-agent-per-metric cooldown so a
// persistent breach does not flood the decision log every report cycle.
func (in *Ingestor) deriveSignals(ctx context.Context, r *types.AgentReport) {
	if mttr := r.KPIs[types.KPIMTTRMin]; mttr > mttrTargetMin {
		in.deriveOnce(ctx, r, types.KPIMTTRMin, func() *types.Signal {
			return in.classifier.Threshold(r.AgentID, types.CategoryInfrastructure,
				types.SeverityWarning, "resolution time over target", types.KPIMTTRMin, mttr)
		})
	}
	if backlog := r.KPIs[types.KPIQueueBacklog]; backlog >= backlogThreshold {
		in.deriveOnce(ctx, r, types.KPIQueueBacklog, func() *types.Signal {
			return in.classifier.Threshold(r.AgentID, types.CategoryOperations,
				types.SeverityWarning, "work queue backlog above normal", types.KPIQueueBacklog, backlog)
		})
	}
}

func (in *Ingestor) deriveOnce(ctx context.Context, r *types.AgentReport, metric string, mk func() *types.Signal) {
	key := r.AgentID + ":" + metric
	now := in.now()

	in.mu.Lock()
	if now.Sub(in.lastSig[key]) < signalCooldown {
		in.mu.Unlock()
		return
	}
	in.lastSig[key] = now
	in.mu.Unlock()

	in.dispatch(ctx, mk())
}

// dispatch logs a signal and runs it through the pipeline.
func (in *Ingestor) dispatch(ctx context.Context, sig *types.Signal) {
	in.signals.Add(sig)
	in.pipeline.Handle(ctx, sig)
}

// Dispatch feeds an externally-submitted signal (POST /api/v1/signals)
// through the same path as derived ones.
func (in *Ingestor) Dispatch(ctx context.Context, sig *types.Signal) *autonomy.DecisionRecord {
	in.signals.Add(sig)
	return in.pipeline.Handle(ctx, sig)
}

// NewVerifier returns the pipeline's post-run check: a metric signal is
// cleared when the agent's latest report is back inside the threshold.
// Signals without a metric, or from agents no longer reporting, cannot be
// re-checked and count as cleared.
func NewVerifier(st *store.Store) func(sig *types.Signal) bool {
	return func(sig *types.Signal) bool {
		if sig.Metric == "" {
			return true
		}
		e, ok := st.Get(sig.Source)
		if !ok {
			return true
		}
		switch sig.Metric {
		case types.KPIMTTRMin:
			return e.Report.KPIs[types.KPIMTTRMin] <= mttrTargetMin
		case types.KPIQueueBacklog:
			return e.Report.KPIs[types.KPIQueueBacklog] < backlogThreshold
		default:
			return true
		}
	}
}

func categoryFor(role string) string {
	if c, ok := roleCategory[role]; ok {
		return c
	}
	return types.CategoryOperations
}
