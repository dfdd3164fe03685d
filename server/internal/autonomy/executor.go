package autonomy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/complianceworxs/chiefstaff/pkg/types"
	"github.com/complianceworxs/chiefstaff/server/internal/finance"
	"github.com/complianceworxs/chiefstaff/server/internal/playbook"
)

// errStepFailed marks a retryable step failure.
var errStepFailed = errors.New("autonomy: step failed")

// executor runs playbook steps in order, retrying each failed step with
// exponential backoff up to maxRetries extra attempts. Step outcomes are
// simulated from the step's success probability; the spend of each completed
// step is recorded against the daily budget.
type executor struct {
	maxRetries uint64
	tracker    *finance.Tracker

	mu  sync.Mutex
	rng *rand.Rand

	// newBackoff is swapped in tests to avoid real sleeps.
	newBackoff func() backoff.BackOff
}

func newExecutor(maxRetries int, tracker *finance.Tracker) *executor {
	return &executor{
		maxRetries: uint64(maxRetries),
		tracker:    tracker,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		newBackoff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 200 * time.Millisecond
			bo.MaxInterval = 5 * time.Second
			return bo
		},
	}
}

// run executes every step of pb. It returns the per-step results and the
// first terminal error, if any. Spend is recorded for each step that runs,
// including failed attempts' final run, since the cost was incurred.
func (ex *executor) run(ctx context.Context, pb *playbook.Playbook, sig *types.Signal) ([]StepResult, error) {
	results := make([]StepResult, 0, len(pb.Steps))

	for _, step := range pb.Steps {
		attempts := 0
		op := func() error {
			attempts++
			if ex.attemptSucceeds(step.SuccessProb) {
				return nil
			}
			return fmt.Errorf("%w: %s (attempt %d)", errStepFailed, step.Action, attempts)
		}

		bo := backoff.WithMaxRetries(ex.newBackoff(), ex.maxRetries)
		err := backoff.Retry(op, backoff.WithContext(bo, ctx))

		if step.CostUSD > 0 && ex.tracker != nil {
			ex.tracker.Record("pipeline", sig.Category, step.CostUSD,
				fmt.Sprintf("%s/%s", pb.ID, step.Name))
		}

		results = append(results, StepResult{
			Name:     step.Name,
			Action:   step.Action,
			Attempts: attempts,
			OK:       err == nil,
		})
		if err != nil {
			slog.Warn("autonomy: step failed",
				"playbook", pb.ID,
				"step", step.Name,
				"attempts", attempts,
			)
			return results, fmt.Errorf("autonomy: playbook %s: step %s: %w", pb.ID, step.Name, err)
		}
	}
	return results, nil
}

func (ex *executor) attemptSucceeds(prob float64) bool {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.rng.Float64() < prob
}
