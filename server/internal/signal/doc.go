// Package signal classifies incoming observations into typed signals: a
// category (operations, revenue, finance, ...), a severity, and a confidence
// score. Free text is matched against a keyword table; KPI threshold breaches
// detected server-side bypass matching and carry full confidence.
package signal
