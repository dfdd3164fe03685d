package checklist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/complianceworxs/chiefstaff/server/internal/config"
	"github.com/complianceworxs/chiefstaff/server/internal/scoreboard"
)

// Runner builds the checklist on the configured interval and pushes it to
// the webhook targets. The latest build is kept for the API.
type Runner struct {
	interval time.Duration
	webhooks []config.WebhookConfig
	source   func() *scoreboard.Scoreboard
	client   *http.Client
	now      func() time.Time

	mu     sync.RWMutex
	latest *Checklist
}

// NewRunner creates a Runner. source must return the current scoreboard.
func NewRunner(cfg config.ChecklistConfig, webhooks []config.WebhookConfig, source func() *scoreboard.Scoreboard) *Runner {
	return &Runner{
		interval: cfg.Interval,
		webhooks: webhooks,
		source:   source,
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// Latest returns the most recent periodic build, or a fresh build when the
// runner has not ticked yet.
func (r *Runner) Latest() *Checklist {
	r.mu.RLock()
	c := r.latest
	r.mu.RUnlock()
	if c != nil {
		return c
	}
	return Build(r.source(), r.now())
}

// Run builds and delivers the checklist on every interval tick until ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c := Build(r.source(), r.now())
			r.mu.Lock()
			r.latest = c
			r.mu.Unlock()

			slog.Info("checklist: generated", "summary", c.Summary)
			r.deliver(c)
		}
	}
}

// deliver pushes the checklist to all configured webhooks. Errors are
// logged but do not affect the caller.
func (r *Runner) deliver(c *Checklist) {
	for _, wh := range r.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var body []byte
		switch wh.Type {
		case "slack":
			body, _ = json.Marshal(map[string]string{"text": renderText(c)})
		case "teams":
			body, _ = json.Marshal(map[string]interface{}{
				"@type":    "MessageCard",
				"@context": "http://schema.org/extensions",
				"summary":  "Autonomy checklist",
				"title":    "ChiefStaff Autonomy Checklist",
				"text":     renderText(c),
			})
		case "http":
			body, _ = json.Marshal(map[string]interface{}{"checklist": c})
		default:
			slog.Warn("checklist: unknown webhook type — skipping", "type", wh.Type)
			continue
		}

		if err := r.post(url, body); err != nil {
			slog.Error("checklist: webhook delivery failed", "type", wh.Type, "err", err)
		}
	}
}

func (r *Runner) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// renderText formats the checklist for chat delivery.
func renderText(c *Checklist) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Autonomy Checklist* — %s\n", c.Summary)
	for _, it := range c.Items {
		fmt.Fprintf(&b, "%s %s: %s\n", marker(it.Status), it.Name, it.Detail)
	}
	return b.String()
}

func marker(status string) string {
	switch status {
	case StatusGreen:
		return "[OK]"
	case StatusYellow:
		return "[WATCH]"
	default:
		return "[ACT]"
	}
}
