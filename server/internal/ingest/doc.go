// Package ingest is the entry point for agent reports. Each accepted report
// updates the store, books the cycle's spend against the daily budget,
// derives remediation signals from KPI threshold breaches, and evaluates
// the escalation rules against the agent's snapshot.
package ingest
