package playbook

import (
	"sync"
	"time"

	"github.com/complianceworxs/chiefstaff/pkg/types"
)

// riskWeightUSD converts a playbook's [0,1] risk estimate into the same
// dollar units as impact and cost for the utility calculation.
const riskWeightUSD = 50

// Selector picks the best playbook for a signal by expected utility and
// tracks per-playbook cooldowns. Safe for concurrent use.
type Selector struct {
	mu        sync.Mutex
	playbooks []Playbook
	cooldowns map[string]time.Time // playbook ID -> time of last run
	floor     float64
	now       func() time.Time
}

// NewSelector creates a Selector over the given playbooks. floor is the
// minimum expected utility a candidate must score to be selected.
func NewSelector(pbs []Playbook, floor float64) *Selector {
	return &Selector{
		playbooks: pbs,
		cooldowns: make(map[string]time.Time),
		floor:     floor,
		now:       time.Now,
	}
}

// Utility is the expected value of running p against sig:
// the confidence-weighted chance of success times the impact, minus the run
// cost, minus the risk estimate expressed in dollars. Signals the classifier
// is unsure about therefore favour cheap, low-risk playbooks.
func Utility(p *Playbook, sig *types.Signal) float64 {
	return sig.Confidence*p.SuccessProb()*p.ImpactUSD - p.CostUSD() - p.Risk*riskWeightUSD
}

// Select returns the matching playbook with the highest expected utility
// above the floor, or ok=false when no playbook qualifies. Playbooks still
// cooling down from a previous run are skipped.
func (s *Selector) Select(sig *types.Signal) (pb *Playbook, utility float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	best := -1
	bestUtil := s.floor
	for i := range s.playbooks {
		p := &s.playbooks[i]
		if !p.matches(sig) {
			continue
		}
		if last, cooling := s.cooldowns[p.ID]; cooling && now.Sub(last) < p.Cooldown {
			continue
		}
		if u := Utility(p, sig); u >= bestUtil {
			best = i
			bestUtil = u
		}
	}
	if best < 0 {
		return nil, 0, false
	}
	return &s.playbooks[best], bestUtil, true
}

// MarkExecuted records a run of the playbook, starting its cooldown.
func (s *Selector) MarkExecuted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldowns[id] = s.now()
}

// All returns the selector's playbook set.
func (s *Selector) All() []Playbook {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Playbook, len(s.playbooks))
	copy(out, s.playbooks)
	return out
}

// Get returns the playbook with the given ID.
func (s *Selector) Get(id string) (*Playbook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.playbooks {
		if s.playbooks[i].ID == id {
			return &s.playbooks[i], true
		}
	}
	return nil, false
}
