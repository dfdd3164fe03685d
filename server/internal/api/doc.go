// Package api serves the dashboard's REST surface under /api/v1/: fleet and
// per-agent state, the scoreboard rollup, signals, pipeline decisions, the
// approval queue, escalations, playbooks, the constitutional validator, and
// finance. All responses are JSON.
package api
