package finance

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/complianceworxs/chiefstaff/server/internal/config"
)

// entryCap bounds the in-memory spend ledger.
const entryCap = 500

// SpendEntry is one recorded expense.
type SpendEntry struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`   // agent ID or "server"
	Category  string    `json:"category"` // signal category the spend belongs to
	AmountUSD float64   `json:"amount_usd"`
	Note      string    `json:"note,omitempty"`
	At        time.Time `json:"at"`
}

// Event reports a budget threshold crossing. Each level fires at most once
// per UTC day.
type Event struct {
	// Level is "warn" (WarnPct crossed) or "exceeded" (100% crossed).
	Level   string
	UsedPct float64
}

// Summary is the current day's financial picture.
type Summary struct {
	Date            string       `json:"date"` // UTC day, YYYY-MM-DD
	DayTotalUSD     float64      `json:"day_total_usd"`
	DailyBudgetUSD  float64      `json:"daily_budget_usd"`
	BudgetUsedPct   float64      `json:"budget_used_pct"`
	BurnRatePerHour float64      `json:"burn_rate_per_hour"`
	Entries         int          `json:"entries"`
	Recent          []SpendEntry `json:"recent,omitempty"`
}

// Tracker accumulates spend against a daily budget and reports threshold
// crossings. Totals reset at UTC midnight. Safe for concurrent use.
type Tracker struct {
	// OnEvent, when set, receives every budget threshold event no matter
	// which caller recorded the crossing spend. Set it once during wiring,
	// before the first Record. Delivery happens outside the tracker's lock,
	// so the callback may call back into the Tracker.
	OnEvent func(Event)

	mu      sync.Mutex
	cfg     config.FinanceConfig
	entries []SpendEntry
	day     string
	total   float64
	warned  bool
	blown   bool
	now     func() time.Time
}

// New creates a Tracker.
func New(cfg config.FinanceConfig) *Tracker {
	return &Tracker{cfg: cfg, now: time.Now}
}

// Record adds a spend entry and returns any budget events the addition
// triggered. The entry's ID and timestamp are assigned here. Events are also
// delivered to OnEvent, which is the path the remediation pipeline listens
// on; the return value is informational.
func (t *Tracker) Record(source, category string, amountUSD float64, note string) (SpendEntry, []Event) {
	t.mu.Lock()

	now := t.now().UTC()
	t.rollover(now)

	e := SpendEntry{
		ID:        uuid.NewString(),
		Source:    source,
		Category:  category,
		AmountUSD: amountUSD,
		Note:      note,
		At:        now,
	}
	t.entries = append(t.entries, e)
	if len(t.entries) > entryCap {
		t.entries = t.entries[len(t.entries)-entryCap:]
	}
	t.total += amountUSD

	usedPct := t.total / t.cfg.DailyBudgetUSD * 100
	var events []Event
	if !t.blown && usedPct >= 100 {
		t.blown = true
		t.warned = true // the warn level is implied once exceeded
		events = append(events, Event{Level: "exceeded", UsedPct: usedPct})
	} else if !t.warned && usedPct >= t.cfg.WarnPct {
		t.warned = true
		events = append(events, Event{Level: "warn", UsedPct: usedPct})
	}
	cb := t.OnEvent
	t.mu.Unlock()

	if cb != nil {
		for _, ev := range events {
			cb(ev)
		}
	}
	return e, events
}

// Summarize returns the current day's totals and the most recent entries,
// newest first, at most limit (limit <= 0 means 20).
func (t *Tracker) Summarize(limit int) Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now().UTC()
	t.rollover(now)

	if limit <= 0 {
		limit = 20
	}
	todays := make([]SpendEntry, 0, limit)
	for i := len(t.entries) - 1; i >= 0 && len(todays) < limit; i-- {
		if dayKey(t.entries[i].At) != t.day {
			break
		}
		todays = append(todays, t.entries[i])
	}

	s := Summary{
		Date:           t.day,
		DayTotalUSD:    t.total,
		DailyBudgetUSD: t.cfg.DailyBudgetUSD,
		BudgetUsedPct:  t.total / t.cfg.DailyBudgetUSD * 100,
		Entries:        len(todays),
		Recent:         todays,
	}
	if hours := now.Sub(dayStart(now)).Hours(); hours > 0 {
		s.BurnRatePerHour = t.total / hours
	}
	return s
}

// BudgetUsedPct returns today's budget utilisation percentage.
func (t *Tracker) BudgetUsedPct() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(t.now().UTC())
	return t.total / t.cfg.DailyBudgetUSD * 100
}

// rollover resets daily state when the UTC day changes. Caller holds mu.
func (t *Tracker) rollover(now time.Time) {
	key := dayKey(now)
	if key == t.day {
		return
	}
	t.day = key
	t.total = 0
	t.warned = false
	t.blown = false
}

func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
