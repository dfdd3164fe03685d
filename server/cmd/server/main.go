package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/complianceworxs/chiefstaff/pkg/types"
	"github.com/complianceworxs/chiefstaff/server/internal/api"
	"github.com/complianceworxs/chiefstaff/server/internal/auth"
	"github.com/complianceworxs/chiefstaff/server/internal/autonomy"
	"github.com/complianceworxs/chiefstaff/server/internal/checklist"
	"github.com/complianceworxs/chiefstaff/server/internal/config"
	"github.com/complianceworxs/chiefstaff/server/internal/constitution"
	"github.com/complianceworxs/chiefstaff/server/internal/escalate"
	"github.com/complianceworxs/chiefstaff/server/internal/finance"
	"github.com/complianceworxs/chiefstaff/server/internal/ingest"
	"github.com/complianceworxs/chiefstaff/server/internal/metrics"
	"github.com/complianceworxs/chiefstaff/server/internal/playbook"
	"github.com/complianceworxs/chiefstaff/server/internal/scoreboard"
	"github.com/complianceworxs/chiefstaff/server/internal/signal"
	"github.com/complianceworxs/chiefstaff/server/internal/store"
	"github.com/complianceworxs/chiefstaff/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("chiefstaff-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"report_ttl", cfg.Server.Report.TTL,
		"autonomy_tier", cfg.Server.Autonomy.Tier,
	)

	ctx, cancel := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Report store with background TTL eviction.
	st := store.New(cfg.Server.Report.TTL)
	go st.Run(ctx)
	signals := store.NewSignalLog(0)

	classifier := signal.NewClassifier()

	validator, err := constitution.New(cfg.Server.Constitution)
	if err != nil {
		slog.Error("failed to compile constitution", "err", err)
		os.Exit(1)
	}

	tracker := finance.New(cfg.Server.Finance)
	escalator := escalate.New(cfg.Server.Escalations)

	playbooks, err := playbook.Load(cfg.Server.PlaybooksPath)
	if err != nil {
		slog.Error("failed to load playbooks", "path", cfg.Server.PlaybooksPath, "err", err)
		os.Exit(1)
	}
	selector := playbook.NewSelector(playbooks, cfg.Server.Autonomy.UtilityFloor)
	slog.Info("playbooks loaded", "count", len(playbooks))

	// Remediation pipeline — verification re-checks the triggering metric
	// against the agent's next report.
	pipeline := autonomy.New(cfg.Server.Autonomy, selector, validator, escalator, tracker)
	pipeline.Verify = ingest.NewVerifier(st)

	ingestor := ingest.New(st, signals, classifier, pipeline, escalator, tracker)

	// buildScoreboard assembles the CEO rollup from live state; shared by the
	// checklist runner and the WebSocket/metrics sources below.
	buildScoreboard := func() *scoreboard.Scoreboard {
		return scoreboard.Build(scoreboard.Input{
			Entries:     st.List(),
			Finance:     tracker.Summarize(0),
			Escalations: escalator.Active(),
			Decisions:   pipeline.Decisions(0),
			Approvals:   len(pipeline.Approvals()),
		}, time.Now())
	}

	// WebSocket hub — pushes dashboard state every 5 seconds and immediately
	// after each ingested report.
	hub := ws.New(func() interface{} {
		entries := st.List()
		agents := make([]*types.AgentReport, 0, len(entries))
		for _, e := range entries {
			agents = append(agents, e.Report)
		}
		return map[string]interface{}{
			"agents":      agents,
			"scoreboard":  buildScoreboard(),
			"approvals":   pipeline.Approvals(),
			"escalations": escalator.Active(),
		}
	}, 5*time.Second)
	go hub.Run(ctx)
	ingestor.OnReport = func(*types.AgentReport) { hub.Broadcast() }

	checklistRunner := checklist.NewRunner(cfg.Server.Checklist, cfg.Server.Escalations.Webhooks, buildScoreboard)
	go checklistRunner.Run(ctx)

	metricsHandler := metrics.NewHandler(func() metrics.Snapshot {
		snap := metrics.Snapshot{
			AgentStates:      map[string]int{},
			DecisionOutcomes: map[string]int{},
			ApprovalsPending: len(pipeline.Approvals()),
			SpendTodayUSD:    tracker.Summarize(0).DayTotalUSD,
			BudgetUsedPct:    tracker.BudgetUsedPct(),
			WSClients:        hub.Count(),
		}
		var total float64
		live := 0
		for _, e := range st.List() {
			snap.AgentStates[e.Report.State]++
			if e.Report.State != types.StateCalibrating {
				total += e.Report.AutonomyScore
				live++
			}
		}
		if live > 0 {
			snap.FleetScore = total / float64(live)
		}
		for _, rec := range pipeline.Decisions(0) {
			snap.DecisionOutcomes[rec.Outcome]++
		}
		for _, esc := range escalator.Active() {
			if esc.State == "firing" {
				snap.EscalationsFiring++
			}
		}
		return snap
	})

	apiHandler := api.New(st, signals, classifier, ingestor, pipeline, escalator,
		tracker, selector, checklistRunner)

	mux := http.NewServeMux()
	mux.Handle("/api/", auth.Middleware(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
		apiHandler,
	))
	mux.Handle("/ws/stream", hub)
	mux.Handle("/metrics", metricsHandler)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: mux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("chiefstaff-server shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
