package autonomy

import (
	"sync"
	"time"

	"github.com/complianceworxs/chiefstaff/pkg/types"
)

// Approval is a playbook run waiting for a human decision.
type Approval struct {
	ID         string        `json:"id"`
	Signal     *types.Signal `json:"signal"`
	PlaybookID string        `json:"playbook_id"`
	Utility    float64       `json:"utility"`
	Reason     string        `json:"reason"` // why this run was not autonomous
	CreatedAt  time.Time     `json:"created_at"`
}

// approvalQueue is a bounded FIFO of pending approvals. When full, the
// oldest entry is evicted and returned so the caller can record the
// auto-rejection.
type approvalQueue struct {
	mu  sync.Mutex
	buf []*Approval
	cap int
}

func newApprovalQueue(cap int) *approvalQueue {
	// A queue that can hold nothing would evict from an empty buffer.
	if cap < 1 {
		cap = 1
	}
	return &approvalQueue{cap: cap}
}

// push appends a, returning the evicted oldest entry when the queue was full.
func (q *approvalQueue) push(a *Approval) (evicted *Approval) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) >= q.cap {
		evicted = q.buf[0]
		q.buf = q.buf[1:]
	}
	q.buf = append(q.buf, a)
	return evicted
}

// take removes and returns the approval with the given ID.
func (q *approvalQueue) take(id string) (*Approval, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, a := range q.buf {
		if a.ID == id {
			q.buf = append(q.buf[:i], q.buf[i+1:]...)
			return a, true
		}
	}
	return nil, false
}

// list returns pending approvals, oldest first.
func (q *approvalQueue) list() []*Approval {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Approval, len(q.buf))
	copy(out, q.buf)
	return out
}

func (q *approvalQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}
