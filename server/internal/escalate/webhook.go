package escalate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// deliver sends webhook notifications for esc to all configured targets.
// Errors are logged but do not affect the caller.
func (e *Engine) deliver(esc *Escalation) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = e.sendSlack(url, esc)
		case "teams":
			err = e.sendTeams(url, esc)
		case "http":
			err = e.sendHTTP(url, esc)
		default:
			slog.Warn("escalate: unknown webhook type — skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("escalate: webhook delivery failed",
				"type", wh.Type,
				"rule", esc.RuleName,
				"err", err,
			)
		} else {
			slog.Debug("escalate: webhook delivered",
				"type", wh.Type,
				"rule", esc.RuleName,
				"state", esc.State,
			)
		}
	}
}

func (e *Engine) sendSlack(url string, esc *Escalation) error {
	text := fmt.Sprintf("*%s* %s", severityLabel(esc.Severity), esc.Message)
	if esc.Owner != "" {
		text += fmt.Sprintf(" (owner: %s)", esc.Owner)
	}
	body, _ := json.Marshal(map[string]string{"text": text})
	return e.post(url, body)
}

func (e *Engine) sendTeams(url string, esc *Escalation) error {
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(esc.Severity),
		"summary":    esc.RuleName,
		"title":      fmt.Sprintf("ChiefStaff Escalation: %s", esc.RuleName),
		"text":       esc.Message,
	}
	body, _ := json.Marshal(payload)
	return e.post(url, body)
}

func (e *Engine) sendHTTP(url string, esc *Escalation) error {
	body, _ := json.Marshal(map[string]interface{}{"escalation": esc})
	return e.post(url, body)
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
