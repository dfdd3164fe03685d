package autonomy

import (
	"sync"
	"time"

	"github.com/complianceworxs/chiefstaff/server/internal/constitution"
)

// Decision outcomes.
const (
	OutcomeExecuted   = "executed"    // playbook ran, all steps succeeded
	OutcomeFailed     = "failed"      // a step exhausted its retries
	OutcomeUnverified = "unverified"  // run succeeded but the signal persists
	OutcomeQueued     = "queued"      // waiting for human approval
	OutcomeApproved   = "approved"    // human approved, superseded by a run record
	OutcomeRejected   = "rejected"    // human rejected, or evicted from a full queue
	OutcomeBlocked    = "blocked"     // constitutional violation
	OutcomeNoPlaybook = "no_playbook" // nothing matched above the utility floor
)

// StepResult records one executed playbook step.
type StepResult struct {
	Name     string `json:"name"`
	Action   string `json:"action"`
	Attempts int    `json:"attempts"`
	OK       bool   `json:"ok"`
}

// DecisionRecord is the audit trail entry for one pipeline pass over a
// signal. Every pass produces exactly one record, whatever the outcome.
type DecisionRecord struct {
	ID         string                   `json:"id"`
	SignalID   string                   `json:"signal_id"`
	Signal     string                   `json:"signal"` // title, for human readers
	Category   string                   `json:"category"`
	Severity   string                   `json:"severity"`
	PlaybookID string                   `json:"playbook_id,omitempty"`
	Utility    float64                  `json:"utility,omitempty"`
	Tier       int                      `json:"tier"`
	Outcome    string                   `json:"outcome"`
	Steps      []StepResult             `json:"steps,omitempty"`
	Violations []constitution.Violation `json:"violations,omitempty"`
	Verified   bool                     `json:"verified,omitempty"`
	Error      string                   `json:"error,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
}

// decisionLogCap bounds the in-memory decision log.
const decisionLogCap = 200

// decisionLog is a bounded, thread-safe log of decision records, newest
// retained.
type decisionLog struct {
	mu  sync.RWMutex
	buf []*DecisionRecord
}

func (l *decisionLog) add(rec *DecisionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = append(l.buf, rec)
	if len(l.buf) > decisionLogCap {
		l.buf = l.buf[len(l.buf)-decisionLogCap:]
	}
}

// list returns records newest first, at most limit (limit <= 0 means all).
func (l *decisionLog) list(limit int) []*DecisionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := len(l.buf)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*DecisionRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		cp := *l.buf[i]
		out = append(out, &cp)
	}
	return out
}
