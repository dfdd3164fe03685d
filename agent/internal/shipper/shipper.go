package shipper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/complianceworxs/chiefstaff/agent/internal/config"
	"github.com/complianceworxs/chiefstaff/pkg/types"
)

const (
	sendTimeout     = 10 * time.Second
	maxRetryElapsed = 2 * time.Minute
)

// reportsPath is the server ingest endpoint, relative to the configured base URL.
const reportsPath = "/api/v1/reports"

// Shipper buffers AgentReports and ships them to chiefstaff-server over HTTP.
// Ship() is non-blocking; when the buffer is full the oldest report is evicted.
// Run() must be called in a goroutine to drain the buffer.
type Shipper struct {
	cfg    config.AgentConfig
	buf    chan *types.AgentReport
	client *http.Client

	// newBackoff builds the retry policy for one report.
	// Injectable so tests run without real delays.
	newBackoff func() backoff.BackOff
}

// New creates a Shipper using the given agent config.
func New(cfg config.AgentConfig) *Shipper {
	return &Shipper{
		cfg:    cfg,
		buf:    make(chan *types.AgentReport, cfg.BufferSize),
		client: &http.Client{Timeout: sendTimeout},
		newBackoff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = time.Second
			bo.MaxInterval = 30 * time.Second
			bo.MaxElapsedTime = maxRetryElapsed
			return bo
		},
	}
}

// Ship enqueues a report for delivery.
// If the buffer is full the oldest entry is evicted to make room.
func (s *Shipper) Ship(r *types.AgentReport) {
	select {
	case s.buf <- r:
	default:
		// Buffer full — drop the oldest report, keep the newest.
		select {
		case <-s.buf:
			slog.Warn("shipper: buffer full, evicted oldest report",
				"agent", r.AgentID, "buffer_cap", cap(s.buf))
		default:
		}
		s.buf <- r
	}
}

// Run drains the buffer, sending reports to the server with exponential
// backoff on transient failures. Reports the server rejects outright (4xx)
// are logged and discarded. Run blocks until ctx is cancelled.
func (s *Shipper) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case r := <-s.buf:
			err := backoff.Retry(func() error {
				return s.send(ctx, r)
			}, backoff.WithContext(s.newBackoff(), ctx))

			if err != nil {
				slog.Error("shipper: giving up on report",
					"agent", r.AgentID, "err", err)
				continue
			}
			slog.Debug("shipper: report delivered", "agent", r.AgentID)
		}
	}
}

// send performs one delivery attempt. A 4xx response means the report itself
// is invalid and is wrapped in backoff.Permanent so the retry loop stops.
func (s *Shipper) send(ctx context.Context, r *types.AgentReport) error {
	body, err := json.Marshal(r)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshal report: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.ServerURL+reportsPath, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	if s.cfg.ServerAuth.Mode == "apikey" {
		req.Header.Set(s.cfg.ServerAuth.EffectiveHeader(), s.cfg.ServerAuth.Key())
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The server rejected the report (validation, auth). Retrying the
		// same payload cannot help.
		return backoff.Permanent(fmt.Errorf("server rejected report: HTTP %d", resp.StatusCode))
	default:
		return fmt.Errorf("server error: HTTP %d", resp.StatusCode)
	}
}
