package compute

import (
	"log/slog"
	"sync"
	"time"

	"github.com/complianceworxs/chiefstaff/agent/internal/persona"
	"github.com/complianceworxs/chiefstaff/pkg/types"
)

// kpiWindow is the number of recent cycles used for rolling KPI averages.
const kpiWindow = 20

// minCycles is how many successful cycles an agent needs before the engine
// scores it. Below this the agent reports as "calibrating".
const minCycles = 3

// Result is the fully-derived KPI snapshot for one agent cycle, ready to be
// rendered into a brief and handed to the shipper.
type Result struct {
	AgentID   string
	Role      string
	Timestamp time.Time

	// State is the autonomy state: autonomous | supervised | manual | calibrating.
	State string

	// AutonomyScore is the composite 0–100 score behind State. Zero while
	// calibrating.
	AutonomyScore float64

	// KPIs holds rolling-window metrics keyed by the shared KPI names.
	KPIs map[string]float64

	// ErrorMessage is non-empty when the observation cycle failed; KPIs then
	// hold the previous window's values.
	ErrorMessage string
}

// Engine maintains per-agent state across observation cycles and derives
// autonomy KPIs from the rolling window.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	states map[string]*agentState
}

// NewEngine returns a ready-to-use Engine.
func NewEngine() *Engine {
	return &Engine{states: make(map[string]*agentState)}
}

// Process ingests an Observation and returns the derived KPI snapshot.
//
// now is passed explicitly so callers (and tests) control the clock without
// sleeping. Use time.Now() in production. The daily HITL counter resets when
// now crosses a UTC day boundary.
func (e *Engine) Process(obs *persona.Observation, now time.Time) *Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.stateFor(obs.AgentID)
	st.rollDay(now)

	out := &Result{
		AgentID:   obs.AgentID,
		Role:      obs.Role,
		Timestamp: now,
	}

	if obs.Err != nil {
		slog.Warn("compute: observation failed, keeping previous window",
			"agent", obs.AgentID, "err", obs.Err)
		out.ErrorMessage = obs.Err.Error()
		out.State = st.lastState
		if out.State == "" {
			out.State = types.StateCalibrating
		}
		out.KPIs = st.kpis(now)
		return out
	}

	st.push(obs)
	st.hitlToday += obs.Escalated

	out.KPIs = st.kpis(now)

	if st.cycles < minCycles {
		out.State = types.StateCalibrating
		st.lastState = out.State
		return out
	}

	score := Score(Input{
		AutoResolvePct: out.KPIs[types.KPIAutoResolvePct],
		MTTRMin:        out.KPIs[types.KPIMTTRMin],
		HITLToday:      out.KPIs[types.KPIHITLToday],
		AlignmentPct:   out.KPIs[types.KPIAlignmentPct],
	})
	out.State = score.State
	out.AutonomyScore = score.Score
	st.lastState = out.State
	return out
}

// agentState holds the rolling window and daily counters for one agent.
type agentState struct {
	window    []*persona.Observation // newest last, capped at kpiWindow
	cycles    int                    // successful cycles seen, lifetime
	hitlToday float64
	day       string // UTC day key for hitlToday resets
	lastState string
}

func (e *Engine) stateFor(id string) *agentState {
	if st, ok := e.states[id]; ok {
		return st
	}
	st := &agentState{}
	e.states[id] = st
	return st
}

func (st *agentState) push(obs *persona.Observation) {
	if len(st.window) >= kpiWindow {
		st.window = st.window[1:]
	}
	st.window = append(st.window, obs)
	st.cycles++
}

// rollDay resets the daily HITL counter when the UTC day changes.
func (st *agentState) rollDay(now time.Time) {
	day := now.UTC().Format("2006-01-02")
	if st.day != day {
		st.day = day
		st.hitlToday = 0
	}
}

// kpis derives the rolling KPI map from the current window.
func (st *agentState) kpis(now time.Time) map[string]float64 {
	out := map[string]float64{
		types.KPIHITLToday: st.hitlToday,
	}
	if len(st.window) == 0 {
		return out
	}

	var tasks, auto, aligned, mttrSum, spend, revenue float64
	for _, o := range st.window {
		tasks += o.TasksHandled
		auto += o.AutoResolved
		aligned += o.AlignedTasks
		mttrSum += o.ResolutionMin
		spend += o.SpendUSD
		revenue += o.RevenueUSD
	}

	n := float64(len(st.window))
	latest := st.window[len(st.window)-1]

	if tasks > 0 {
		out[types.KPIAutoResolvePct] = auto / tasks * 100
		out[types.KPIAlignmentPct] = aligned / tasks * 100
	}
	out[types.KPIMTTRMin] = mttrSum / n
	out[types.KPITasksHandled] = latest.TasksHandled
	out[types.KPIQueueBacklog] = latest.QueueBacklog
	out[types.KPISpendUSD] = spend / n
	out[types.KPIRevenueUSD] = revenue / n
	return out
}
