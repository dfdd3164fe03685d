package store

import (
	"sync"

	"github.com/complianceworxs/chiefstaff/pkg/types"
)

// SignalLog is a bounded, thread-safe log of recent signals, newest first.
// When the cap is reached the oldest signal is dropped.
type SignalLog struct {
	mu  sync.RWMutex
	buf []*types.Signal
	cap int
}

// NewSignalLog creates a SignalLog holding at most cap signals.
func NewSignalLog(cap int) *SignalLog {
	if cap <= 0 {
		cap = 200
	}
	return &SignalLog{cap: cap}
}

// Add appends a signal, evicting the oldest when full.
func (l *SignalLog) Add(sig *types.Signal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = append(l.buf, sig)
	if len(l.buf) > l.cap {
		l.buf = l.buf[len(l.buf)-l.cap:]
	}
}

// List returns a snapshot of held signals, newest first, at most limit
// entries. limit <= 0 means all.
func (l *SignalLog) List(limit int) []*types.Signal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := len(l.buf)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*types.Signal, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.buf[i])
	}
	return out
}

// Len returns the number of signals currently held.
func (l *SignalLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buf)
}
