// Package config loads and validates the chiefstaff-server YAML configuration:
// listen port, auth, report retention, autonomy tier and execution limits,
// constitutional gating rules, budgets, escalation rules, and webhook targets.
//
// Secrets (API keys, webhook URLs) are resolved from environment variables
// named in the file, never stored in it.
package config
