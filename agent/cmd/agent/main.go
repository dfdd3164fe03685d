package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/complianceworxs/chiefstaff/agent/internal/brief"
	"github.com/complianceworxs/chiefstaff/agent/internal/compute"
	"github.com/complianceworxs/chiefstaff/agent/internal/config"
	"github.com/complianceworxs/chiefstaff/agent/internal/persona"
	"github.com/complianceworxs/chiefstaff/agent/internal/shipper"
	"github.com/complianceworxs/chiefstaff/pkg/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("chiefstaff-agent starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"server_url", cfg.Agent.ServerURL,
		"personas", len(cfg.Agent.Personas),
		"report_interval", cfg.Agent.ReportInterval,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Build the executive fleet from the initial config.
	// Hot-reload logs only; personas are rebuilt on next start.
	engine := compute.NewEngine()
	var fleet []*persona.Persona
	for _, p := range cfg.Agent.Personas {
		agent, err := persona.New(p)
		if err != nil {
			slog.Error("skipping persona — could not build", "id", p.ID, "err", err)
			continue
		}
		fleet = append(fleet, agent)
		slog.Info("registered persona", "id", p.ID, "role", p.Role)
	}

	if len(fleet) == 0 {
		slog.Warn("no personas configured — agent will idle")
	}

	// Watch config file for hot-reload (logs only in this phase).
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			slog.Info("config hot-reloaded", "personas", len(updated.Agent.Personas))
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	// Start the HTTP shipper — runs until ctx is cancelled.
	ship := shipper.New(cfg.Agent)
	go ship.Run(ctx)

	// Observation loop: every ReportInterval, run each persona's cycle,
	// derive KPIs, render the brief, and ship the report.
	go func() {
		ticker := time.NewTicker(cfg.Agent.ReportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				for _, p := range fleet {
					obs := p.Observe(ctx)
					res := engine.Process(obs, t.UTC())
					ship.Ship(&types.AgentReport{
						AgentID:       res.AgentID,
						Role:          res.Role,
						Timestamp:     res.Timestamp,
						State:         res.State,
						AutonomyScore: res.AutonomyScore,
						KPIs:          res.KPIs,
						Brief:         brief.Render(res),
						ErrorMessage:  res.ErrorMessage,
					})
					slog.Debug("shipped report",
						"agent", res.AgentID,
						"state", res.State,
						"score", res.AutonomyScore,
					)
				}
			}
		}
	}()

	<-ctx.Done()
	slog.Info("chiefstaff-agent shutting down")
}
