package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/complianceworxs/chiefstaff/pkg/types"
	"github.com/complianceworxs/chiefstaff/server/internal/autonomy"
	"github.com/complianceworxs/chiefstaff/server/internal/checklist"
	"github.com/complianceworxs/chiefstaff/server/internal/escalate"
	"github.com/complianceworxs/chiefstaff/server/internal/finance"
	"github.com/complianceworxs/chiefstaff/server/internal/ingest"
	"github.com/complianceworxs/chiefstaff/server/internal/playbook"
	"github.com/complianceworxs/chiefstaff/server/internal/scoreboard"
	"github.com/complianceworxs/chiefstaff/server/internal/signal"
	"github.com/complianceworxs/chiefstaff/server/internal/store"
)

// maxBodyBytes bounds request bodies on the write endpoints.
const maxBodyBytes = 1 << 20

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	store      *store.Store
	signals    *store.SignalLog
	classifier *signal.Classifier
	ingestor   *ingest.Ingestor
	pipeline   *autonomy.Pipeline
	escalator  *escalate.Engine
	tracker    *finance.Tracker
	selector   *playbook.Selector
	checklist  *checklist.Runner
	mux        *http.ServeMux
}

// New creates a Handler wired to the server's engines and registers all routes.
func New(st *store.Store, sigs *store.SignalLog, cl *signal.Classifier,
	ing *ingest.Ingestor, p *autonomy.Pipeline, esc *escalate.Engine,
	tr *finance.Tracker, sel *playbook.Selector, chk *checklist.Runner) http.Handler {
	h := &Handler{
		store:      st,
		signals:    sigs,
		classifier: cl,
		ingestor:   ing,
		pipeline:   p,
		escalator:  esc,
		tracker:    tr,
		selector:   sel,
		checklist:  chk,
		mux:        http.NewServeMux(),
	}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/reports", h.reports)
	h.mux.HandleFunc("/api/v1/agents", h.listAgents)
	h.mux.HandleFunc("/api/v1/agents/", h.getAgent) // subtree — extracts {id}
	h.mux.HandleFunc("/api/v1/scoreboard", h.scoreboard)
	h.mux.HandleFunc("/api/v1/signals", h.handleSignals)
	h.mux.HandleFunc("/api/v1/decisions", h.decisions)
	h.mux.HandleFunc("/api/v1/approvals", h.listApprovals)
	h.mux.HandleFunc("/api/v1/approvals/", h.decideApproval) // subtree — extracts {id}
	h.mux.HandleFunc("/api/v1/escalations", h.escalations)
	h.mux.HandleFunc("/api/v1/playbooks", h.playbooks)
	h.mux.HandleFunc("/api/v1/validate", h.validate)
	h.mux.HandleFunc("/api/v1/finance", h.finance)
	h.mux.HandleFunc("/api/v1/finance/spend", h.recordSpend)
	h.mux.HandleFunc("/api/v1/checklist", h.getChecklist)
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// buildScoreboard assembles the current scoreboard from live state.
func (h *Handler) buildScoreboard() *scoreboard.Scoreboard {
	return scoreboard.Build(scoreboard.Input{
		Entries:     h.store.List(),
		Finance:     h.tracker.Summarize(0),
		Escalations: h.escalator.Active(),
		Decisions:   h.pipeline.Decisions(0),
		Approvals:   len(h.pipeline.Approvals()),
	}, time.Now())
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — fleet state counts and average score.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	resp := HealthResponse{
		AgentCount: len(entries),
		Tier:       h.pipeline.Tier(),
	}
	for _, esc := range h.escalator.Active() {
		if esc.State == "firing" {
			resp.EscalationCount++
		}
	}
	if len(entries) == 0 {
		resp.State = "unknown"
		jsonResp(w, http.StatusOK, resp)
		return
	}

	var total float64
	live := 0
	for _, e := range entries {
		switch e.Report.State {
		case types.StateAutonomous:
			resp.AutonomousCount++
		case types.StateSupervised:
			resp.SupervisedCount++
		case types.StateManual:
			resp.ManualCount++
		default:
			resp.CalibratingCount++
		}
		if e.Report.State != types.StateCalibrating {
			total += e.Report.AutonomyScore
			live++
		}
	}
	if live > 0 {
		resp.OverallScore = total / float64(live)
		resp.State = stateFromScore(resp.OverallScore)
	} else {
		resp.State = types.StateCalibrating
	}
	jsonResp(w, http.StatusOK, resp)
}

// reports accepts POST /api/v1/reports — an agent report cycle.
func (h *Handler) reports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var report types.AgentReport
	if err := decodeBody(w, r, &report); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid report body: "+err.Error())
		return
	}
	if err := h.ingestor.Ingest(r.Context(), &report); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// listAgents returns GET /api/v1/agents — all live agents.
func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	out := make([]AgentResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toAgentResponse(e))
	}
	jsonResp(w, http.StatusOK, out)
}

// getAgent returns GET /api/v1/agents/{id} — a single live agent.
func (h *Handler) getAgent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/agents/")
	if id == "" {
		h.listAgents(w, r)
		return
	}

	e, ok := h.store.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "agent not found")
		return
	}
	// Exclude stale entries — treat them as not found.
	if time.Since(e.UpdatedAt) > h.store.TTL() {
		jsonErr(w, http.StatusNotFound, "agent not found")
		return
	}
	jsonResp(w, http.StatusOK, toAgentResponse(e))
}

// scoreboard returns GET /api/v1/scoreboard — the CEO-facing rollup.
func (h *Handler) scoreboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.buildScoreboard())
}

// handleSignals serves GET /api/v1/signals (recent signals) and
// POST /api/v1/signals (classify a raw observation and run the pipeline).
func (h *Handler) handleSignals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jsonResp(w, http.StatusOK, h.signals.List(limitParam(r)))

	case http.MethodPost:
		var req SignalRequest
		if err := decodeBody(w, r, &req); err != nil {
			jsonErr(w, http.StatusBadRequest, "invalid signal body: "+err.Error())
			return
		}
		if req.Title == "" {
			jsonErr(w, http.StatusBadRequest, "title is required")
			return
		}
		if req.Source == "" {
			req.Source = "api"
		}
		sig := h.classifier.Classify(req.Source, req.Title, req.Detail)
		rec := h.ingestor.Dispatch(r.Context(), sig)
		jsonResp(w, http.StatusOK, map[string]interface{}{
			"signal":   sig,
			"decision": rec,
		})

	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// decisions returns GET /api/v1/decisions — recent pipeline decisions.
func (h *Handler) decisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.pipeline.Decisions(limitParam(r)))
}

// listApprovals returns GET /api/v1/approvals — playbook runs awaiting a human.
func (h *Handler) listApprovals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.pipeline.Approvals())
}

// decideApproval handles POST /api/v1/approvals/{id} — approve or reject.
func (h *Handler) decideApproval(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/approvals/")
	if id == "" {
		jsonErr(w, http.StatusBadRequest, "approval id is required")
		return
	}
	var req ApprovalRequest
	if err := decodeBody(w, r, &req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid approval body: "+err.Error())
		return
	}

	switch req.Action {
	case "approve":
		rec, err := h.pipeline.Approve(r.Context(), id)
		if err != nil {
			jsonErr(w, http.StatusNotFound, err.Error())
			return
		}
		jsonResp(w, http.StatusOK, rec)
	case "reject":
		rec, err := h.pipeline.Reject(id)
		if err != nil {
			jsonErr(w, http.StatusNotFound, err.Error())
			return
		}
		jsonResp(w, http.StatusOK, rec)
	default:
		jsonErr(w, http.StatusBadRequest, "action must be approve or reject")
	}
}

// escalations returns GET /api/v1/escalations — firing plus recently resolved.
func (h *Handler) escalations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.escalator.Active())
}

// playbooks returns GET /api/v1/playbooks — the loaded playbook set.
func (h *Handler) playbooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.selector.All())
}

// validate handles POST /api/v1/validate — constitutional check of a draft.
func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ValidateRequest
	if err := decodeBody(w, r, &req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid validate body: "+err.Error())
		return
	}
	if req.Draft == "" {
		jsonErr(w, http.StatusBadRequest, "draft is required")
		return
	}
	verdict := h.pipeline.ValidateContent(req.Draft)
	jsonResp(w, http.StatusOK, ValidateResponse{
		Allowed:    verdict.Allowed,
		Violations: verdict.Violations,
	})
}

// finance returns GET /api/v1/finance — today's totals and recent entries.
func (h *Handler) finance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.tracker.Summarize(limitParam(r)))
}

// recordSpend handles POST /api/v1/finance/spend — a manually booked expense.
func (h *Handler) recordSpend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req SpendRequest
	if err := decodeBody(w, r, &req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid spend body: "+err.Error())
		return
	}
	if req.AmountUSD <= 0 {
		jsonErr(w, http.StatusBadRequest, "amount_usd must be positive")
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}
	if req.Category == "" {
		req.Category = types.CategoryOperations
	}
	// Budget threshold crossings reach the pipeline through the tracker's
	// event sink; only the entry matters here.
	entry, _ := h.tracker.Record(req.Source, req.Category, req.AmountUSD, req.Note)
	jsonResp(w, http.StatusCreated, entry)
}

// getChecklist returns GET /api/v1/checklist — the latest autonomy review.
func (h *Handler) getChecklist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.checklist.Latest())
}

// snapshot returns GET /api/v1/snapshot — full dashboard state in one call.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	agents := make([]AgentResponse, 0, len(entries))
	for _, e := range entries {
		agents = append(agents, toAgentResponse(e))
	}
	jsonResp(w, http.StatusOK, map[string]interface{}{
		"agents":       agents,
		"scoreboard":   h.buildScoreboard(),
		"approvals":    h.pipeline.Approvals(),
		"escalations":  h.escalator.Active(),
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// limitParam reads the optional ?limit= query parameter.
func limitParam(r *http.Request) int {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// stateFromScore converts a 0–100 fleet score to its state string.
// Mirrors the thresholds in agent/internal/compute.
func stateFromScore(score float64) string {
	switch {
	case score >= 85:
		return types.StateAutonomous
	case score >= 60:
		return types.StateSupervised
	default:
		return types.StateManual
	}
}

// toAgentResponse maps a store.Entry to its JSON representation.
func toAgentResponse(e *store.Entry) AgentResponse {
	r := e.Report
	return AgentResponse{
		AgentID:       r.AgentID,
		Role:          r.Role,
		State:         r.State,
		AutonomyScore: r.AutonomyScore,
		KPIs:          r.KPIs,
		Brief:         r.Brief,
		ErrorMessage:  r.ErrorMessage,
		Diagnostics:   computeDiagnostics(r),
		LastSeen:      e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
