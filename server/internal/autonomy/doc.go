// Package autonomy implements the remediation pipeline behind the autonomy
// tiers. A signal flows through playbook selection (expected utility),
// constitutional clearance, a tier gate (advisory, guarded, or full),
// retried execution, and post-run verification. Runs held back by the tier
// land in a bounded approval queue; every pass is recorded in the decision
// log for audit.
package autonomy
