// Package challenge defines the challenge catalog model and the loader
// that turns a stored record into a validated Definition.
package challenge

import (
	"fmt"
	"strings"

	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
)

// Status is the strongly typed activation state of a challenge. The stored
// value is validated at load time; unexpected values fail fast instead of
// being coerced to a boolean.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ParseStatus validates a stored status value.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive, nil
	case StatusInactive:
		return StatusInactive, nil
	default:
		return "", fmt.Errorf("unknown challenge status %q", s)
	}
}

// ScoringMode selects how criterion results aggregate into a score. The
// mode is a declared property of the definition, never inferred.
type ScoringMode string

const (
	// ScoringStrict sums each criterion's full point value when its check
	// reports implemented. This is the default.
	ScoringStrict ScoringMode = "strict"

	// ScoringWeighted computes per-category earned/possible fractions,
	// multiplies each by the category's declared weight, and sums.
	ScoringWeighted ScoringMode = "weighted"
)

// Criterion is one scorable unit within a challenge.
type Criterion struct {
	ID            string `json:"id" dynamodbav:"id"`
	Name          string `json:"name" dynamodbav:"name"`
	Points        int    `json:"points" dynamodbav:"points"`
	CheckFunction string `json:"checkFunction" dynamodbav:"checkFunction"`

	// Category assigns the criterion to a weighted-scoring category.
	// Required when the definition declares weighted scoring.
	Category string `json:"category,omitempty" dynamodbav:"category,omitempty"`

	// Hint is an optional remediation hint surfaced in feedback when the
	// criterion is unmet.
	Hint string `json:"hint,omitempty" dynamodbav:"hint,omitempty"`
}

// Definition is the validated, immutable description of a challenge for
// one assessment run.
type Definition struct {
	ChallengeID     string         `json:"challengeId"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Criteria        []Criterion    `json:"assessmentCriteria"`
	StackNamePrefix string         `json:"stackNamePrefix"`
	PassingScore    int            `json:"passingScore"`
	Status          Status         `json:"status"`
	ScoringMode     ScoringMode    `json:"scoringMode"`
	CategoryWeights map[string]int `json:"categoryWeights,omitempty"`

	// CheckCodeKey is the object-store key of the challenge's check module.
	// Empty means the conventional key derived from the challenge id.
	CheckCodeKey string `json:"checkCodeKey,omitempty"`
}

// Validate rejects definitions the engine must not execute. Callers treat
// any returned error as fatal for the run.
func (d *Definition) Validate() error {
	const op = "challenge.Validate"
	if d.ChallengeID == "" {
		return fault.New(fault.InvalidDefinition, op, "missing challenge id")
	}
	if len(d.Criteria) == 0 {
		return fault.New(fault.InvalidDefinition, op, "challenge %q has no assessment criteria", d.ChallengeID)
	}
	if d.PassingScore <= 0 {
		return fault.New(fault.InvalidDefinition, op, "challenge %q has no positive passing score", d.ChallengeID)
	}

	seen := make(map[string]struct{}, len(d.Criteria))
	for _, c := range d.Criteria {
		if c.ID == "" {
			return fault.New(fault.InvalidDefinition, op, "challenge %q has a criterion without an id", d.ChallengeID)
		}
		if _, dup := seen[c.ID]; dup {
			return fault.New(fault.InvalidDefinition, op, "challenge %q declares criterion %q twice", d.ChallengeID, c.ID)
		}
		seen[c.ID] = struct{}{}
		if c.Points < 0 {
			return fault.New(fault.InvalidDefinition, op, "criterion %q has negative points", c.ID)
		}
		if c.CheckFunction == "" {
			return fault.New(fault.InvalidDefinition, op, "criterion %q names no check function", c.ID)
		}
	}

	switch d.ScoringMode {
	case ScoringStrict, "":
	case ScoringWeighted:
		if len(d.CategoryWeights) == 0 {
			return fault.New(fault.InvalidDefinition, op, "challenge %q declares weighted scoring without category weights", d.ChallengeID)
		}
		for cat, w := range d.CategoryWeights {
			if w < 0 {
				return fault.New(fault.InvalidDefinition, op, "category %q has negative weight", cat)
			}
		}
		for _, c := range d.Criteria {
			if c.Category == "" {
				return fault.New(fault.InvalidDefinition, op, "criterion %q has no category but challenge %q uses weighted scoring", c.ID, d.ChallengeID)
			}
			if _, ok := d.CategoryWeights[c.Category]; !ok {
				return fault.New(fault.InvalidDefinition, op, "criterion %q names undeclared category %q", c.ID, c.Category)
			}
		}
	default:
		return fault.New(fault.InvalidDefinition, op, "challenge %q declares unknown scoring mode %q", d.ChallengeID, d.ScoringMode)
	}

	return nil
}

// Mode returns the declared scoring mode, defaulting to strict.
func (d *Definition) Mode() ScoringMode {
	if d.ScoringMode == "" {
		return ScoringStrict
	}
	return d.ScoringMode
}

// MaxScore is the sum of all criterion point values under strict scoring,
// or the sum of category weights under weighted scoring.
func (d *Definition) MaxScore() int {
	if d.Mode() == ScoringWeighted {
		total := 0
		for _, w := range d.CategoryWeights {
			total += w
		}
		return total
	}
	total := 0
	for _, c := range d.Criteria {
		total += c.Points
	}
	return total
}

// StackName derives the name of the resource group evaluated for a subject.
// A "{subject}" placeholder in the prefix is substituted; otherwise the
// subject id is appended.
func (d *Definition) StackName(subjectID string) string {
	if strings.Contains(d.StackNamePrefix, "{subject}") {
		return strings.ReplaceAll(d.StackNamePrefix, "{subject}", subjectID)
	}
	if d.StackNamePrefix == "" {
		return subjectID
	}
	return d.StackNamePrefix + "-" + subjectID
}

// CheckKey returns the object-store key holding the challenge's check
// module.
func (d *Definition) CheckKey() string {
	if d.CheckCodeKey != "" {
		return d.CheckCodeKey
	}
	return fmt.Sprintf("challenges/%s/checks.hcl", d.ChallengeID)
}
