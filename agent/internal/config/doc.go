// Package config loads and validates the chiefstaff-agent YAML configuration:
// the server endpoint, report interval, buffered shipping limits, and the list
// of simulated executive personas. Watch() provides fsnotify-based hot reload.
//
// Secrets (API keys) are never stored in the config file; the file names the
// environment variable that holds the value.
package config
