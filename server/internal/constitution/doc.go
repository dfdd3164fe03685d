// Package constitution enforces the hard limits on autonomous action:
// content rules (forbidden phrases, unsubstantiated claims, regulated
// language without a disclaimer) and a per-action spend cap. Every playbook
// execution and every outgoing draft passes through here regardless of
// autonomy tier; a blocked verdict cannot be overridden by configuration.
package constitution
