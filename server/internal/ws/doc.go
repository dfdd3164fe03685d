// Package ws pushes live dashboard state to connected UI clients over
// WebSocket: on a fixed interval and immediately after each ingested agent
// report. Slow clients are disconnected rather than allowed to stall the
// broadcast.
package ws
