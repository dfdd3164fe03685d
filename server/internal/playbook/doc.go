// Package playbook defines remediation playbooks — ordered action steps with
// success probabilities, costs, impact, and risk estimates — and selects the
// best one for a signal by expected utility. Definitions load from YAML or
// fall back to a built-in set covering the common signal categories.
package playbook
