// Package checklist produces the periodic autonomy review: a short
// green/yellow/red list answering whether the operation can keep running
// itself. It is built from the live scoreboard on a configurable interval
// and pushed to the escalation webhooks.
package checklist
