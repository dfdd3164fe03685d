// Package brief renders an agent's per-cycle operational brief from its
// computed KPIs. Briefs travel inside AgentReports and are parsed server-side
// by the scoreboard mappers, so the metric line labels are part of the
// contract between agent and server.
package brief
