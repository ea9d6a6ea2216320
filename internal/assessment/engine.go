package assessment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Wollering/CTF-Assessment-Engine/internal/challenge"
	"github.com/Wollering/CTF-Assessment-Engine/internal/checkmod"
	"github.com/Wollering/CTF-Assessment-Engine/internal/credentials"
	"github.com/Wollering/CTF-Assessment-Engine/internal/ctxlog"
	"github.com/Wollering/CTF-Assessment-Engine/internal/executor"
	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
	"github.com/Wollering/CTF-Assessment-Engine/internal/probe"
	"github.com/Wollering/CTF-Assessment-Engine/internal/scoring"
)

// DefinitionLoader resolves a challenge id into a validated, active
// definition.
type DefinitionLoader interface {
	Load(ctx context.Context, challengeID string) (*challenge.Definition, error)
}

// ModuleLoader fetches and compiles a challenge's check module.
type ModuleLoader interface {
	Load(ctx context.Context, key string) (*checkmod.Module, error)
}

// CredentialBroker exchanges the engine's identity for tenant-scoped
// credentials.
type CredentialBroker interface {
	Assume(ctx context.Context, tenantID string) (*credentials.Credentials, error)
}

// CheckRunner evaluates every criterion to a terminal state.
type CheckRunner interface {
	Run(ctx context.Context, def *challenge.Definition, mod *checkmod.Module, in probe.Input) []executor.CriterionResult
}

// Persister stores a finished result. A persistence failure does not
// invalidate the run; the engine logs it and still returns the result.
type Persister interface {
	Save(ctx context.Context, result *Result) error
}

// Reporter emits operational metrics about finished and failed runs.
// Implementations must not fail the run; errors stay inside the reporter.
type Reporter interface {
	ReportAssessment(ctx context.Context, challengeID string, score, maxScore int, passed bool, duration time.Duration)
	ReportRunFailure(ctx context.Context, challengeID string, kind fault.Kind)
}

// Engine wires the run pipeline together.
type Engine struct {
	definitions DefinitionLoader
	modules     ModuleLoader
	broker      CredentialBroker
	runner      CheckRunner
	feedback    *scoring.FeedbackGenerator
	persister   Persister
	reporter    Reporter
	region      string
}

// New wires an Engine. Persister and Reporter may be nil when the caller
// wants no storage or metrics, as in one-shot CLI runs.
func New(
	definitions DefinitionLoader,
	modules ModuleLoader,
	broker CredentialBroker,
	runner CheckRunner,
	feedback *scoring.FeedbackGenerator,
	persister Persister,
	reporter Reporter,
	region string,
) *Engine {
	return &Engine{
		definitions: definitions,
		modules:     modules,
		broker:      broker,
		runner:      runner,
		feedback:    feedback,
		persister:   persister,
		reporter:    reporter,
		region:      region,
	}
}

// Run executes one assessment end to end. Every run is independent: it
// loads the currently published definition and check code, brokers fresh
// credentials, and shares no state with any other run, so repeating a
// request against unchanged infrastructure produces the same score.
//
// Failures before execution (lookup, load, credential exchange) abort the
// run with a classified error and no partial result. Failures inside
// individual checks are contained by the runner and appear on the
// criterion results instead.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()

	logger := ctxlog.FromContext(ctx).With(
		"assessment_id", runID,
		"subject_id", req.SubjectID,
		"challenge_id", req.ChallengeID,
		"tenant_id", req.TenantID,
	)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Info("Assessment run starting.")

	if err := req.Validate(); err != nil {
		return nil, e.fail(ctx, req, err)
	}

	def, err := e.definitions.Load(ctx, req.ChallengeID)
	if err != nil {
		return nil, e.fail(ctx, req, err)
	}

	mod, err := e.modules.Load(ctx, def.CheckKey())
	if err != nil {
		return nil, e.fail(ctx, req, err)
	}

	creds, err := e.broker.Assume(ctx, req.TenantID)
	if err != nil {
		return nil, e.fail(ctx, req, err)
	}

	results := e.runner.Run(ctx, def, mod, probe.Input{
		SubjectID:   req.SubjectID,
		StackName:   def.StackName(req.SubjectID),
		TenantID:    req.TenantID,
		Credentials: creds,
		Region:      e.region,
	})

	summary := scoring.Aggregate(def, results)
	duration := time.Since(started)

	result := &Result{
		AssessmentID: runID,
		SubjectID:    req.SubjectID,
		ChallengeID:  req.ChallengeID,
		TenantID:     req.TenantID,
		Timestamp:    Stamp(started),
		Score:        summary.Score,
		MaxScore:     summary.MaxScore,
		Passed:       summary.Passed,
		Criteria:     results,
		DurationMS:   duration.Milliseconds(),
	}
	if e.feedback != nil {
		result.Feedback = e.feedback.Generate(def, summary, results)
	}

	if e.persister != nil {
		if err := e.persister.Save(ctx, result); err != nil {
			// The score stands even when it could not be stored.
			logger.Error("Failed to persist assessment result.", "error", err)
		}
	}
	if e.reporter != nil {
		e.reporter.ReportAssessment(ctx, req.ChallengeID, summary.Score, summary.MaxScore, summary.Passed, duration)
	}

	logger.Info("Assessment run finished.",
		"score", summary.Score,
		"max_score", summary.MaxScore,
		"passed", summary.Passed,
		"duration", duration,
	)
	return result, nil
}

// fail records a run-level failure and returns the classified error.
func (e *Engine) fail(ctx context.Context, req Request, err error) error {
	ctxlog.FromContext(ctx).Warn("Assessment run aborted.",
		"kind", string(fault.KindOf(err)),
		"error", err,
	)
	if e.reporter != nil {
		e.reporter.ReportRunFailure(ctx, req.ChallengeID, fault.KindOf(err))
	}
	return err
}
