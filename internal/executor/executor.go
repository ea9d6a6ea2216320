// Package executor evaluates a challenge's criteria against a loaded
// check module.
//
// This is the engine's failure-isolation boundary: a check that errors,
// panics, returns garbage, or never comes back affects only its own
// criterion. Every criterion always reaches a terminal state and the run
// always produces a full, ordered result list.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Wollering/CTF-Assessment-Engine/internal/challenge"
	"github.com/Wollering/CTF-Assessment-Engine/internal/checkmod"
	"github.com/Wollering/CTF-Assessment-Engine/internal/ctxlog"
	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
	"github.com/Wollering/CTF-Assessment-Engine/internal/probe"
)

// Status is the terminal state of one criterion's evaluation.
type Status string

const (
	// StatusCompleted means the check ran and returned a well-formed result
	// within its deadline (whether or not it found the criterion met).
	StatusCompleted Status = "completed"

	// StatusFailed means the check could not produce a usable verdict: the
	// procedure was missing, errored, panicked, returned a malformed
	// result, or the run's credentials had expired.
	StatusFailed Status = "failed"

	// StatusTimedOut means the check exceeded the engine-enforced deadline.
	// Scored identically to failed, tagged separately for observability.
	StatusTimedOut Status = "timed_out"
)

// CriterionResult is the outcome of one criterion for one run. Points is
// always 0 or the criterion's full value; there is no partial credit.
type CriterionResult struct {
	CriterionID string         `json:"id"`
	Name        string         `json:"name"`
	Points      int            `json:"points"`
	MaxPoints   int            `json:"maxPoints"`
	Implemented bool           `json:"implemented"`
	Status      Status         `json:"status"`
	Error       string         `json:"error,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// Config bounds check execution.
type Config struct {
	// CheckTimeout is the hard per-check deadline.
	CheckTimeout time.Duration

	// MaxInFlight caps concurrent checks to stay under the target
	// account's API rate limits.
	MaxInFlight int
}

// DefaultConfig fills zero-valued Config fields.
var DefaultConfig = Config{
	CheckTimeout: 30 * time.Second,
	MaxInFlight:  4,
}

// Executor runs checks under the configured bounds.
type Executor struct {
	cfg Config
}

// New builds an Executor, filling unset config fields with defaults.
func New(cfg Config) *Executor {
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = DefaultConfig.CheckTimeout
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultConfig.MaxInFlight
	}
	return &Executor{cfg: cfg}
}

// indexedResult pairs a result with its criterion's position so the final
// list preserves the definition's declared order regardless of completion
// order.
type indexedResult struct {
	index  int
	result CriterionResult
}

// Run evaluates every criterion of the definition to a terminal state and
// returns results in declaration order. It never returns early: failure
// inside a check is recorded on that criterion, not escalated.
func (e *Executor) Run(ctx context.Context, def *challenge.Definition, mod *checkmod.Module, in probe.Input) []CriterionResult {
	logger := ctxlog.FromContext(ctx).With("challenge_id", def.ChallengeID)
	logger.Info("Starting criterion evaluation.",
		"criteria", len(def.Criteria),
		"max_in_flight", e.cfg.MaxInFlight,
		"check_timeout", e.cfg.CheckTimeout,
	)

	sem := make(chan struct{}, e.cfg.MaxInFlight)
	resultsCh := make(chan indexedResult, len(def.Criteria))

	var wg sync.WaitGroup
	for i, criterion := range def.Criteria {
		wg.Add(1)
		go func(idx int, c challenge.Criterion) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			resultsCh <- indexedResult{index: idx, result: e.evaluate(ctx, c, mod, in)}
		}(i, criterion)
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	ordered := make([]CriterionResult, len(def.Criteria))
	for ir := range resultsCh {
		ordered[ir.index] = ir.result
	}

	logger.Info("Criterion evaluation finished.")
	return ordered
}

// checkOutcome carries a finished check invocation back across the
// deadline race.
type checkOutcome struct {
	res *checkmod.Result
	err error
}

// evaluate drives one criterion through the
// Pending -> Running -> {Completed | Failed | TimedOut} state machine.
func (e *Executor) evaluate(ctx context.Context, c challenge.Criterion, mod *checkmod.Module, in probe.Input) CriterionResult {
	logger := ctxlog.FromContext(ctx).With("criterion", c.ID, "check", c.CheckFunction)
	result := CriterionResult{
		CriterionID: c.ID,
		Name:        c.Name,
		MaxPoints:   c.Points,
	}

	proc, ok := mod.Resolve(c.CheckFunction)
	if !ok {
		// Never silently skipped: an unresolvable procedure is an explicit
		// zero-point failure.
		result.Status = StatusFailed
		result.Error = fmt.Sprintf("check procedure %q not found in module %s", c.CheckFunction, mod.Source())
		logger.Warn("Check procedure not found.")
		return result
	}

	if in.Credentials != nil && in.Credentials.Expired(time.Now()) {
		result.Status = StatusFailed
		result.Error = fault.New(fault.CredentialsExpired, "executor.evaluate",
			"tenant credentials expired before the check ran").Error()
		logger.Warn("Credentials expired mid-run.")
		return result
	}

	checkCtx, cancel := context.WithTimeout(ctx, e.cfg.CheckTimeout)
	defer cancel()

	done := make(chan checkOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- checkOutcome{err: fmt.Errorf("check panicked: %v", r)}
			}
		}()
		res, err := proc.Invoke(checkCtx, in)
		done <- checkOutcome{res: res, err: err}
	}()

	// Race the check against its deadline. The deadline is enforced here,
	// not cooperatively: an overrun check is abandoned, never awaited. The
	// buffered channel lets a stray goroutine finish and be collected.
	select {
	case outcome := <-done:
		return e.finish(logger, c, result, outcome)
	case <-checkCtx.Done():
		if errors.Is(checkCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			result.Status = StatusTimedOut
			result.Error = fmt.Sprintf("check exceeded the %s deadline", e.cfg.CheckTimeout)
			logger.Warn("Check timed out.", "deadline", e.cfg.CheckTimeout)
		} else {
			result.Status = StatusFailed
			result.Error = "run cancelled before the check finished"
			logger.Warn("Run cancelled during check.")
		}
		return result
	}
}

func (e *Executor) finish(logger *slog.Logger, c challenge.Criterion, result CriterionResult, outcome checkOutcome) CriterionResult {
	if outcome.err != nil {
		result.Status = StatusFailed
		result.Error = outcome.err.Error()
		logger.Warn("Check failed.", "error", result.Error)
		return result
	}

	result.Status = StatusCompleted
	result.Implemented = outcome.res.Implemented
	result.Details = outcome.res.Details
	if outcome.res.Implemented {
		result.Points = c.Points
	}
	logger.Debug("Check completed.", "implemented", result.Implemented, "points", result.Points)
	return result
}
