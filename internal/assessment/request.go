// Package assessment orchestrates one full run: definition lookup, check
// module loading, credential exchange, check execution, scoring, feedback,
// persistence, and metrics.
package assessment

import (
	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
)

// Request identifies one assessment run.
type Request struct {
	// SubjectID names the participant (team or user) being assessed.
	SubjectID string `json:"subjectId"`

	// ChallengeID names the challenge in the catalog.
	ChallengeID string `json:"challengeId"`

	// TenantID is the account the subject's resources live in.
	TenantID string `json:"tenantId"`
}

// Validate rejects requests before any lookup or credential exchange
// happens.
func (r *Request) Validate() error {
	const op = "assessment.Request.Validate"
	if r.SubjectID == "" {
		return fault.New(fault.BadInput, op, "missing subject id")
	}
	if r.ChallengeID == "" {
		return fault.New(fault.BadInput, op, "missing challenge id")
	}
	if r.TenantID == "" {
		return fault.New(fault.BadInput, op, "missing tenant id")
	}
	return nil
}
