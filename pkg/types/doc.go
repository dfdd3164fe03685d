// Package types defines shared Go types used by both the agent fleet and the
// coordination server. These are the canonical wire shapes for agent reports
// and coordination signals, exchanged as JSON over the REST ingest endpoint.
package types
