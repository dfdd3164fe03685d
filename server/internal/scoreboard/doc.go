// Package scoreboard builds the CEO-facing rollup: fleet autonomy health,
// revenue against autonomous spend, open risk, and the action list. Metric
// lines are parsed back out of agent briefs with regex mappers; the labels
// in those briefs are a stable contract with the agent's renderer.
package scoreboard
