package finance

import (
	"testing"
	"time"

	"github.com/complianceworxs/chiefstaff/pkg/types"
	"github.com/complianceworxs/chiefstaff/server/internal/config"
)

func testTracker(budget, warnPct float64) (*Tracker, *time.Time) {
	tr := New(config.FinanceConfig{DailyBudgetUSD: budget, WarnPct: warnPct})
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestRecord_Totals(t *testing.T) {
	tr, _ := testTracker(100, 80)

	tr.Record("coo-1", types.CategoryOperations, 10, "")
	tr.Record("cmo-1", types.CategoryMarketing, 15.5, "ad spend")

	s := tr.Summarize(0)
	if s.DayTotalUSD != 25.5 {
		t.Errorf("DayTotalUSD: got %v, want 25.5", s.DayTotalUSD)
	}
	if s.BudgetUsedPct != 25.5 {
		t.Errorf("BudgetUsedPct: got %v, want 25.5", s.BudgetUsedPct)
	}
	if s.Entries != 2 {
		t.Errorf("Entries: got %d, want 2", s.Entries)
	}
	if s.Recent[0].Source != "cmo-1" {
		t.Errorf("Recent: want newest first, got %q", s.Recent[0].Source)
	}
}

func TestRecord_WarnEventOnce(t *testing.T) {
	tr, _ := testTracker(100, 80)

	_, ev := tr.Record("coo-1", types.CategoryOperations, 79, "")
	if len(ev) != 0 {
		t.Fatalf("below warn: got events %+v", ev)
	}
	_, ev = tr.Record("coo-1", types.CategoryOperations, 2, "")
	if len(ev) != 1 || ev[0].Level != "warn" {
		t.Fatalf("crossing warn: got %+v, want one warn event", ev)
	}
	_, ev = tr.Record("coo-1", types.CategoryOperations, 5, "")
	if len(ev) != 0 {
		t.Errorf("after warn: got %+v, want no repeat", ev)
	}
}

func TestRecord_ExceededEvent(t *testing.T) {
	tr, _ := testTracker(100, 80)

	_, ev := tr.Record("coo-1", types.CategoryOperations, 150, "runaway")
	if len(ev) != 1 || ev[0].Level != "exceeded" {
		t.Fatalf("got %+v, want one exceeded event", ev)
	}
	if ev[0].UsedPct != 150 {
		t.Errorf("UsedPct: got %v, want 150", ev[0].UsedPct)
	}
	// A later entry must not re-fire warn or exceeded.
	_, ev = tr.Record("coo-1", types.CategoryOperations, 1, "")
	if len(ev) != 0 {
		t.Errorf("after exceeded: got %+v, want nothing", ev)
	}
}

func TestDayRollover(t *testing.T) {
	tr, now := testTracker(100, 80)

	tr.Record("coo-1", types.CategoryOperations, 90, "")
	*now = now.Add(24 * time.Hour)

	s := tr.Summarize(0)
	if s.DayTotalUSD != 0 {
		t.Errorf("DayTotalUSD after rollover: got %v, want 0", s.DayTotalUSD)
	}
	// Threshold events re-arm on the new day.
	_, ev := tr.Record("coo-1", types.CategoryOperations, 85, "")
	if len(ev) != 1 || ev[0].Level != "warn" {
		t.Errorf("new day warn: got %+v", ev)
	}
}

func TestBurnRate(t *testing.T) {
	tr, now := testTracker(100, 80)
	*now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) // 10h into the day

	tr.Record("coo-1", types.CategoryOperations, 20, "")
	s := tr.Summarize(0)
	if s.BurnRatePerHour != 2 {
		t.Errorf("BurnRatePerHour: got %v, want 2", s.BurnRatePerHour)
	}
}

func TestBudgetUsedPct(t *testing.T) {
	tr, _ := testTracker(200, 80)
	tr.Record("coo-1", types.CategoryOperations, 50, "")
	if got := tr.BudgetUsedPct(); got != 25 {
		t.Errorf("BudgetUsedPct: got %v, want 25", got)
	}
}

func TestRecord_ExactBudgetExceeded(t *testing.T) {
	tr, _ := testTracker(100, 80)

	// Landing exactly on 100% counts as exceeded, not merely warned.
	_, ev := tr.Record("coo-1", types.CategoryOperations, 100, "")
	if len(ev) != 1 || ev[0].Level != "exceeded" {
		t.Fatalf("at 100%%: got %+v, want one exceeded event", ev)
	}
}

func TestRecord_OnEventDelivery(t *testing.T) {
	tr, _ := testTracker(100, 80)

	var got []Event
	tr.OnEvent = func(ev Event) { got = append(got, ev) }

	tr.Record("coo-1", types.CategoryOperations, 85, "")
	tr.Record("pipeline", types.CategoryOperations, 20, "")
	if len(got) != 2 || got[0].Level != "warn" || got[1].Level != "exceeded" {
		t.Fatalf("OnEvent: got %+v, want warn then exceeded", got)
	}
}

func TestRecord_OnEventMayRecord(t *testing.T) {
	tr, _ := testTracker(100, 80)

	// The pipeline records step spend from inside event handling; the
	// callback must run outside the tracker's lock.
	tr.OnEvent = func(ev Event) {
		if ev.Level == "warn" {
			tr.Record("pipeline", types.CategoryOperations, 1, "follow-on")
		}
	}
	tr.Record("coo-1", types.CategoryOperations, 85, "")
	if got := tr.Summarize(0).DayTotalUSD; got != 86 {
		t.Errorf("DayTotalUSD: got %v, want 86", got)
	}
}
