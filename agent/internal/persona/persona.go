package persona

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/complianceworxs/chiefstaff/agent/internal/config"
	"github.com/complianceworxs/chiefstaff/pkg/types"
)

// Observation is the raw activity produced by one persona cycle.
// Counter fields are totals for this cycle, not rates — the compute engine
// maintains rolling windows and derives KPIs from them.
type Observation struct {
	AgentID    string
	Role       string
	ObservedAt time.Time

	TasksHandled  float64 // tasks processed this cycle
	AutoResolved  float64 // subset resolved without a human
	Escalated     float64 // subset escalated to a human (HITL)
	ResolutionMin float64 // mean minutes to resolution this cycle
	AlignedTasks  float64 // subset tied to a strategic objective
	SpendUSD      float64 // API/token spend this cycle
	RevenueUSD    float64 // revenue attributed this cycle
	QueueBacklog  float64 // items waiting at end of cycle

	// Err is non-nil when the observation cycle itself failed (the simulated
	// agent was unreachable). The compute engine reports such cycles as
	// degraded and keeps the previous baseline.
	Err error
}

// incidentChance is the per-cycle probability of an operational anomaly
// (MTTR spike plus backlog growth). outageChance is the per-cycle probability
// of a failed observation.
const (
	incidentChance = 0.06
	outageChance   = 0.01
)

// Persona is one simulated executive agent. Observe is not safe for
// concurrent use; each persona is driven by a single loop.
type Persona struct {
	id   string
	role string
	base baseline
	rng  *rand.Rand

	// drift is a slow-moving multiplier applied to activity volume, so a
	// persona trends better or worse over many cycles instead of jittering
	// around a fixed point.
	drift float64
}

// New builds a Persona from its configuration entry. Unknown roles are
// rejected; baseline overrides replace the role defaults per KPI.
func New(cfg config.Persona) (*Persona, error) {
	base, ok := roleBaselines[cfg.Role]
	if !ok {
		return nil, fmt.Errorf("persona: unsupported role %q", cfg.Role)
	}
	base.apply(cfg.Baselines)

	seed := cfg.Seed
	if seed == 0 {
		seed = seedFromID(cfg.ID)
	}

	return &Persona{
		id:   cfg.ID,
		role: cfg.Role,
		base: base,
		rng:  rand.New(rand.NewSource(seed)), //nolint:gosec // simulation, not crypto
	}, nil
}

// ID returns the persona's unique identifier.
func (p *Persona) ID() string { return p.id }

// Role returns the persona's executive role.
func (p *Persona) Role() string { return p.role }

// Observe runs one activity cycle and returns the resulting Observation.
// A small fraction of cycles fail (Err set) to exercise degraded paths.
func (p *Persona) Observe(ctx context.Context) *Observation {
	obs := &Observation{
		AgentID:    p.id,
		Role:       p.role,
		ObservedAt: time.Now().UTC(),
	}
	if err := ctx.Err(); err != nil {
		obs.Err = err
		return obs
	}

	if p.rng.Float64() < outageChance {
		obs.Err = fmt.Errorf("persona %q: observation cycle timed out", p.id)
		return obs
	}

	// Evolve the drift: bounded random walk in [-0.15, +0.15].
	p.drift += (p.rng.Float64() - 0.5) * 0.02
	if p.drift > 0.15 {
		p.drift = 0.15
	}
	if p.drift < -0.15 {
		p.drift = -0.15
	}

	activity := 1 + p.drift + (p.rng.Float64()-0.5)*0.2

	obs.TasksHandled = round1(p.base.tasks * activity)
	if obs.TasksHandled < 1 {
		obs.TasksHandled = 1
	}

	autoFrac := p.base.autoResolvePct/100 + (p.rng.Float64()-0.5)*0.06
	if autoFrac < 0 {
		autoFrac = 0
	}
	if autoFrac > 1 {
		autoFrac = 1
	}
	obs.AutoResolved = round1(obs.TasksHandled * autoFrac)
	obs.Escalated = round1((obs.TasksHandled - obs.AutoResolved) * 0.4)

	obs.ResolutionMin = p.base.mttrMin * (1 + (p.rng.Float64()-0.5)*0.3)
	obs.QueueBacklog = round1(p.base.backlog * (1 + (p.rng.Float64()-0.5)*0.5))

	if p.rng.Float64() < incidentChance {
		// Operational anomaly: resolution time spikes and the queue grows.
		obs.ResolutionMin *= 2.5
		obs.QueueBacklog += p.base.backlog * 2
	}

	alignFrac := p.base.alignmentPct/100 + (p.rng.Float64()-0.5)*0.04
	obs.AlignedTasks = round1(obs.TasksHandled * clamp01(alignFrac))

	obs.SpendUSD = p.base.spendUSD * activity * (1 + (p.rng.Float64()-0.5)*0.2)
	obs.RevenueUSD = p.base.revenueUSD * activity * (1 + (p.rng.Float64()-0.5)*0.4)

	return obs
}

// baseline holds the role's typical per-cycle activity levels.
type baseline struct {
	tasks          float64
	autoResolvePct float64
	mttrMin        float64
	backlog        float64
	alignmentPct   float64
	spendUSD       float64
	revenueUSD     float64
}

// apply overlays user-provided overrides, keyed by the shared KPI names.
func (b *baseline) apply(overrides map[string]float64) {
	for k, v := range overrides {
		switch k {
		case types.KPITasksHandled:
			b.tasks = v
		case types.KPIAutoResolvePct:
			b.autoResolvePct = v
		case types.KPIMTTRMin:
			b.mttrMin = v
		case types.KPIQueueBacklog:
			b.backlog = v
		case types.KPIAlignmentPct:
			b.alignmentPct = v
		case types.KPISpendUSD:
			b.spendUSD = v
		case types.KPIRevenueUSD:
			b.revenueUSD = v
		}
	}
}

// roleBaselines are the default activity profiles per executive role.
// Numbers follow the operational targets in the product playbook: ~87%
// auto-resolve, MTTR under 5 minutes, $47/day token spend across the fleet.
var roleBaselines = map[string]baseline{
	types.RoleCOO:         {tasks: 40, autoResolvePct: 87, mttrMin: 4.3, backlog: 2, alignmentPct: 92, spendUSD: 9, revenueUSD: 310},
	types.RoleCRO:         {tasks: 25, autoResolvePct: 84, mttrMin: 5.1, backlog: 3, alignmentPct: 90, spendUSD: 7, revenueUSD: 540},
	types.RoleCMO:         {tasks: 30, autoResolvePct: 86, mttrMin: 4.8, backlog: 4, alignmentPct: 88, spendUSD: 8, revenueUSD: 260},
	types.RoleCCO:         {tasks: 15, autoResolvePct: 82, mttrMin: 6.0, backlog: 2, alignmentPct: 95, spendUSD: 5, revenueUSD: 120},
	types.RoleContent:     {tasks: 20, autoResolvePct: 88, mttrMin: 3.5, backlog: 3, alignmentPct: 85, spendUSD: 6, revenueUSD: 90},
	types.RoleMarketIntel: {tasks: 18, autoResolvePct: 90, mttrMin: 3.0, backlog: 1, alignmentPct: 87, spendUSD: 6, revenueUSD: 70},
	types.RoleGovernance:  {tasks: 10, autoResolvePct: 80, mttrMin: 7.0, backlog: 1, alignmentPct: 97, spendUSD: 4, revenueUSD: 0},
}

// seedFromID derives a stable seed from the persona ID so unseeded personas
// still behave reproducibly run-to-run.
func seedFromID(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(id)) //nolint:errcheck
	return int64(h.Sum64())
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
