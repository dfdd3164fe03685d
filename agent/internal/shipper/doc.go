// Package shipper delivers AgentReports to chiefstaff-server over HTTP.
//
// Reports are buffered in a bounded channel so short server outages lose
// nothing; when the buffer fills, the oldest report is evicted — the server
// only ever cares about the most recent picture of each agent. Transient
// delivery failures retry with exponential backoff; 4xx rejections are
// discarded immediately.
package shipper
