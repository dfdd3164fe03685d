// Package persona simulates the executive agent fleet (COO, CRO, CMO, CCO,
// content manager, market intelligence, governance). Each persona produces one
// Observation per cycle: raw activity counters (tasks handled, auto-resolved,
// escalated, resolution time, spend, revenue) generated by a seeded random
// walk around role-specific baselines.
//
// The simulation is deterministic for a given seed, so tests and demos are
// reproducible. The compute engine turns consecutive Observations into
// autonomy KPIs; nothing in this package interprets the numbers.
package persona
