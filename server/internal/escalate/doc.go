// Package escalate turns KPI threshold breaches into owner-routed
// escalations: rules evaluate simple "field op value" conditions against
// agent snapshots, fire with per-rule cooldowns, resolve when the condition
// clears, and notify Slack/Teams/HTTP webhooks. The remediation pipeline
// raises escalations here directly when a playbook run fails or needs
// human approval.
package escalate
