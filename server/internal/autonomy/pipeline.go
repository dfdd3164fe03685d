package autonomy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/complianceworxs/chiefstaff/pkg/types"
	"github.com/complianceworxs/chiefstaff/server/internal/config"
	"github.com/complianceworxs/chiefstaff/server/internal/constitution"
	"github.com/complianceworxs/chiefstaff/server/internal/escalate"
	"github.com/complianceworxs/chiefstaff/server/internal/finance"
	"github.com/complianceworxs/chiefstaff/server/internal/playbook"
)

// Pipeline drives a signal from classification to resolution: select the
// best playbook, clear it constitutionally, gate it by autonomy tier,
// execute with retries, verify, and record the decision. Every pass leaves
// exactly one DecisionRecord regardless of outcome.
type Pipeline struct {
	cfg       config.AutonomyConfig
	selector  *playbook.Selector
	validator *constitution.Validator
	escalator *escalate.Engine
	exec      *executor
	queue     *approvalQueue
	log       *decisionLog

	// Verify re-checks whether the signal's condition has cleared after a
	// successful run. Nil disables verification and runs count as resolved.
	Verify func(sig *types.Signal) bool

	now func() time.Time
}

// New creates a Pipeline. tracker may be nil when spend recording is not
// wanted (tests).
func New(cfg config.AutonomyConfig, sel *playbook.Selector, val *constitution.Validator,
	esc *escalate.Engine, tracker *finance.Tracker) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		selector:  sel,
		validator: val,
		escalator: esc,
		exec:      newExecutor(cfg.MaxRetries, tracker),
		queue:     newApprovalQueue(cfg.QueueCap),
		log:       &decisionLog{},
		now:       time.Now,
	}
}

// Tier returns the configured autonomy tier.
func (p *Pipeline) Tier() int { return p.cfg.Tier }

// Handle runs one signal through the pipeline and returns its decision
// record. Safe for concurrent use.
func (p *Pipeline) Handle(ctx context.Context, sig *types.Signal) *DecisionRecord {
	rec := &DecisionRecord{
		ID:        uuid.NewString(),
		SignalID:  sig.ID,
		Signal:    sig.Title,
		Category:  sig.Category,
		Severity:  sig.Severity,
		Tier:      p.cfg.Tier,
		CreatedAt: p.now().UTC(),
	}

	pb, util, ok := p.selector.Select(sig)
	if !ok {
		rec.Outcome = OutcomeNoPlaybook
		if sig.Severity == types.SeverityCritical {
			p.escalator.Raise("no-playbook", sig.Source, types.SeverityWarning, "CoS",
				fmt.Sprintf("no playbook for critical signal %q (%s)", sig.Title, sig.Category))
		}
		p.finish(rec)
		return rec
	}
	rec.PlaybookID = pb.ID
	rec.Utility = util

	if verdict := p.validator.ValidateSpend(pb.CostUSD()); !verdict.Allowed {
		rec.Outcome = OutcomeBlocked
		rec.Violations = verdict.Violations
		p.escalator.Raise("constitution-blocked", sig.Source, types.SeverityWarning, "CoS",
			fmt.Sprintf("playbook %s blocked for %q: %s", pb.ID, sig.Title, verdict.Violations[0].Detail))
		p.finish(rec)
		return rec
	}

	if reason := p.holdReason(pb); reason != "" {
		p.enqueue(rec, sig, pb, util, reason)
		p.finish(rec)
		return rec
	}

	p.execute(ctx, rec, pb, sig)
	p.finish(rec)
	return rec
}

// holdReason returns why a playbook must wait for human approval, or ""
// when the current tier lets it run autonomously.
func (p *Pipeline) holdReason(pb *playbook.Playbook) string {
	switch {
	case p.cfg.Tier <= 1:
		return "tier 1 is advisory: all actions need approval"
	case p.cfg.Tier == 2 && pb.Risk > p.cfg.RiskThreshold:
		return fmt.Sprintf("risk %.2f exceeds tier 2 threshold %.2f", pb.Risk, p.cfg.RiskThreshold)
	}
	return ""
}

func (p *Pipeline) enqueue(rec *DecisionRecord, sig *types.Signal, pb *playbook.Playbook, util float64, reason string) {
	rec.Outcome = OutcomeQueued
	evicted := p.queue.push(&Approval{
		ID:         rec.ID,
		Signal:     sig,
		PlaybookID: pb.ID,
		Utility:    util,
		Reason:     reason,
		CreatedAt:  rec.CreatedAt,
	})
	if evicted != nil {
		p.log.add(&DecisionRecord{
			ID:         uuid.NewString(),
			SignalID:   evicted.Signal.ID,
			Signal:     evicted.Signal.Title,
			Category:   evicted.Signal.Category,
			Severity:   evicted.Signal.Severity,
			PlaybookID: evicted.PlaybookID,
			Tier:       p.cfg.Tier,
			Outcome:    OutcomeRejected,
			Error:      "evicted: approval queue full",
			CreatedAt:  p.now().UTC(),
		})
		slog.Warn("autonomy: approval queue full, oldest entry rejected",
			"evicted", evicted.ID)
	}
	p.escalator.Raise("approval-needed", sig.Source, types.SeverityInfo, "CoS",
		fmt.Sprintf("playbook %s for %q awaits approval: %s", pb.ID, sig.Title, reason))
}

func (p *Pipeline) execute(ctx context.Context, rec *DecisionRecord, pb *playbook.Playbook, sig *types.Signal) {
	p.selector.MarkExecuted(pb.ID)
	steps, err := p.exec.run(ctx, pb, sig)
	rec.Steps = steps
	if err != nil {
		rec.Outcome = OutcomeFailed
		rec.Error = err.Error()
		p.escalator.Raise("playbook-failed", sig.Source, types.SeverityWarning, "CTO",
			fmt.Sprintf("playbook %s failed on %q: %v", pb.ID, sig.Title, err))
		return
	}
	p.escalator.Resolve("playbook-failed", sig.Source)

	if p.Verify != nil && !p.Verify(sig) {
		rec.Outcome = OutcomeUnverified
		p.escalator.Raise("verification-failed", sig.Source, types.SeverityWarning, "CoS",
			fmt.Sprintf("playbook %s ran but %q persists", pb.ID, sig.Title))
		return
	}
	rec.Verified = true
	rec.Outcome = OutcomeExecuted
}

// finish logs the record and emits the structured summary line.
func (p *Pipeline) finish(rec *DecisionRecord) {
	p.log.add(rec)
	slog.Info("autonomy: decision",
		"signal", rec.Signal,
		"category", rec.Category,
		"playbook", rec.PlaybookID,
		"outcome", rec.Outcome,
		"tier", rec.Tier,
	)
}

// Approve executes the queued approval with the given ID and returns its
// run record.
func (p *Pipeline) Approve(ctx context.Context, id string) (*DecisionRecord, error) {
	a, ok := p.queue.take(id)
	if !ok {
		return nil, fmt.Errorf("autonomy: approval %q not found", id)
	}
	pb, ok := p.selector.Get(a.PlaybookID)
	if !ok {
		return nil, fmt.Errorf("autonomy: playbook %q no longer exists", a.PlaybookID)
	}

	rec := &DecisionRecord{
		ID:         uuid.NewString(),
		SignalID:   a.Signal.ID,
		Signal:     a.Signal.Title,
		Category:   a.Signal.Category,
		Severity:   a.Signal.Severity,
		PlaybookID: a.PlaybookID,
		Utility:    a.Utility,
		Tier:       p.cfg.Tier,
		CreatedAt:  p.now().UTC(),
	}
	p.execute(ctx, rec, pb, a.Signal)
	p.escalator.Resolve("approval-needed", a.Signal.Source)
	p.finish(rec)
	return rec, nil
}

// Reject discards the queued approval with the given ID, recording the
// decision.
func (p *Pipeline) Reject(id string) (*DecisionRecord, error) {
	a, ok := p.queue.take(id)
	if !ok {
		return nil, fmt.Errorf("autonomy: approval %q not found", id)
	}
	rec := &DecisionRecord{
		ID:         uuid.NewString(),
		SignalID:   a.Signal.ID,
		Signal:     a.Signal.Title,
		Category:   a.Signal.Category,
		Severity:   a.Signal.Severity,
		PlaybookID: a.PlaybookID,
		Utility:    a.Utility,
		Tier:       p.cfg.Tier,
		Outcome:    OutcomeRejected,
		CreatedAt:  p.now().UTC(),
	}
	p.escalator.Resolve("approval-needed", a.Signal.Source)
	p.finish(rec)
	return rec, nil
}

// Approvals returns pending approvals, oldest first.
func (p *Pipeline) Approvals() []*Approval { return p.queue.list() }

// Decisions returns recent decision records, newest first, at most limit
// (limit <= 0 means all retained).
func (p *Pipeline) Decisions(limit int) []*DecisionRecord { return p.log.list(limit) }

// ValidateContent exposes the content gate for drafts submitted over the API.
func (p *Pipeline) ValidateContent(draft string) constitution.Verdict {
	return p.validator.ValidateContent(draft)
}
