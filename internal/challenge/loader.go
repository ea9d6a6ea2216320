package challenge

import (
	"context"

	"github.com/Wollering/CTF-Assessment-Engine/internal/ctxlog"
	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
)

// Catalog is the read-only lookup boundary to the challenge store. A nil
// definition with a nil error is not a valid return; implementations
// signal a missing entry with fault.NotFound.
type Catalog interface {
	GetDefinition(ctx context.Context, challengeID string) (*Definition, error)
}

// Loader resolves a challenge id into a validated, active Definition.
type Loader struct {
	catalog Catalog
}

// NewLoader wires a Loader to a catalog.
func NewLoader(catalog Catalog) *Loader {
	return &Loader{catalog: catalog}
}

// Load fetches and validates the definition for one assessment run. It
// fails with NotFound, Inactive, or InvalidDefinition; callers must not
// proceed to execution on any error.
func (l *Loader) Load(ctx context.Context, challengeID string) (*Definition, error) {
	const op = "challenge.Load"
	logger := ctxlog.FromContext(ctx).With("challenge_id", challengeID)

	if challengeID == "" {
		return nil, fault.New(fault.NotFound, op, "empty challenge id")
	}

	def, err := l.catalog.GetDefinition(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	switch def.Status {
	case StatusActive:
	case StatusInactive:
		return nil, fault.New(fault.Inactive, op, "challenge %q is not active", challengeID)
	default:
		return nil, fault.New(fault.InvalidDefinition, op, "challenge %q has unrecognized status %q", challengeID, def.Status)
	}

	logger.Debug("Challenge definition loaded.",
		"criteria", len(def.Criteria),
		"passing_score", def.PassingScore,
		"scoring_mode", def.Mode(),
	)
	return def, nil
}
