// Package store holds the server's in-memory state: the latest report per
// agent with TTL eviction, and a bounded signal log for the dashboard's
// recent-signals view. Nothing here persists across restarts; the fleet
// repopulates the store within one report interval.
package store
