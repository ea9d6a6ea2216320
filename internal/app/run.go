package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Wollering/CTF-Assessment-Engine/internal/assessment"
	"github.com/Wollering/CTF-Assessment-Engine/internal/ctxlog"
)

// Run executes the configured mode: a single assessment printed as JSON,
// or the long-running HTTP front door.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	if a.cfg.OneShot() {
		return a.runOnce(ctx)
	}
	return a.Serve(a.cfg.ListenAddr)
}

// runOnce performs one assessment and writes the full result to the
// output writer. A failing score is still a successful run; only
// run-level faults produce a non-nil error.
func (a *App) runOnce(ctx context.Context) error {
	result, err := a.runner.Run(ctx, assessment.Request{
		SubjectID:   a.cfg.SubjectID,
		ChallengeID: a.cfg.ChallengeID,
		TenantID:    a.cfg.TenantID,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to render result: %w", err)
	}
	return nil
}
