// Package finance tracks autonomous spend against the daily budget: a
// bounded in-memory ledger, per-UTC-day totals with burn rate, and one-shot
// threshold events when utilisation crosses the warn percentage or exceeds
// the budget.
package finance
