package api

import (
	"github.com/complianceworxs/chiefstaff/server/internal/constitution"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	OverallScore     float64 `json:"overall_score"`
	State            string  `json:"state"`
	AgentCount       int     `json:"agent_count"`
	AutonomousCount  int     `json:"autonomous_count"`
	SupervisedCount  int     `json:"supervised_count"`
	ManualCount      int     `json:"manual_count"`
	CalibratingCount int     `json:"calibrating_count"`
	Tier             int     `json:"tier"`
	EscalationCount  int     `json:"escalation_count"`
}

// AgentResponse is one agent entry in GET /api/v1/agents or
// GET /api/v1/agents/{id}.
type AgentResponse struct {
	AgentID       string             `json:"agent_id"`
	Role          string             `json:"role"`
	State         string             `json:"state"`
	AutonomyScore float64            `json:"autonomy_score"`
	KPIs          map[string]float64 `json:"kpis"`
	Brief         string             `json:"brief,omitempty"`
	ErrorMessage  string             `json:"error_message,omitempty"`
	Diagnostics   []DiagnosticHint   `json:"diagnostics"`
	LastSeen      string             `json:"last_seen"` // RFC3339
}

// SignalRequest is the payload for POST /api/v1/signals: a raw observation
// the server classifies and runs through the pipeline.
type SignalRequest struct {
	Source string `json:"source"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// ApprovalRequest is the payload for POST /api/v1/approvals/{id}.
type ApprovalRequest struct {
	// Action is "approve" or "reject".
	Action string `json:"action"`
}

// ValidateRequest is the payload for POST /api/v1/validate.
type ValidateRequest struct {
	Draft string `json:"draft"`
}

// ValidateResponse is the payload for POST /api/v1/validate.
type ValidateResponse struct {
	Allowed    bool                     `json:"allowed"`
	Violations []constitution.Violation `json:"violations,omitempty"`
}

// SpendRequest is the payload for POST /api/v1/finance/spend: a manually
// booked expense.
type SpendRequest struct {
	Source    string  `json:"source"`
	Category  string  `json:"category"`
	AmountUSD float64 `json:"amount_usd"`
	Note      string  `json:"note"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
