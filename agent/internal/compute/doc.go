// Package compute derives autonomy KPIs from raw persona Observations.
//
// The Engine keeps a rolling window of recent cycles per agent and computes
// auto-resolve rate, MTTR, daily HITL escalation count, alignment, spend and
// revenue. Score turns those KPIs into a composite 0–100 autonomy score and
// an autonomy state (autonomous / supervised / manual).
package compute
