package scoring

import (
	"sort"

	"github.com/Wollering/CTF-Assessment-Engine/internal/challenge"
	"github.com/Wollering/CTF-Assessment-Engine/internal/executor"
	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
)

// Band maps a score fraction threshold to a summary message. A band
// applies to every fraction at or above its minimum, up to the next band.
type Band struct {
	MinFraction float64 `json:"minFraction"`
	Message     string  `json:"message"`
}

// DefaultBands is the stock message table, lowest threshold first.
var DefaultBands = []Band{
	{MinFraction: 0.0, Message: "Significant work needed. Review the challenge requirements and try again."},
	{MinFraction: 0.25, Message: "A start has been made, but most criteria are still unmet."},
	{MinFraction: 0.5, Message: "Good progress. Several criteria remain to be addressed."},
	{MinFraction: 0.75, Message: "Strong work. A few criteria are still outstanding."},
	{MinFraction: 1.0, Message: "Excellent. Every assessment criterion is satisfied."},
}

// ValidateBands rejects a band table that is empty, does not start at
// zero, or is not strictly increasing. A valid table assigns exactly one
// message to every fraction in [0, 1].
func ValidateBands(bands []Band) error {
	const op = "scoring.ValidateBands"
	if len(bands) == 0 {
		return fault.New(fault.BadInput, op, "feedback band table is empty")
	}
	if bands[0].MinFraction != 0 {
		return fault.New(fault.BadInput, op, "first feedback band must start at fraction 0, got %v", bands[0].MinFraction)
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].MinFraction <= bands[i-1].MinFraction {
			return fault.New(fault.BadInput, op,
				"feedback bands must be strictly increasing: band %d (%v) does not exceed band %d (%v)",
				i, bands[i].MinFraction, i-1, bands[i-1].MinFraction)
		}
		if bands[i].MinFraction > 1 {
			return fault.New(fault.BadInput, op, "feedback band fraction %v exceeds 1", bands[i].MinFraction)
		}
	}
	return nil
}

// ImplementedItem is one satisfied criterion in the feedback payload.
type ImplementedItem struct {
	CriterionID string         `json:"id"`
	Name        string         `json:"name"`
	Points      int            `json:"points"`
	Details     map[string]any `json:"details,omitempty"`
}

// UnmetItem is one unsatisfied criterion, with its remediation hint when
// the definition carries one.
type UnmetItem struct {
	CriterionID string `json:"id"`
	Name        string `json:"name"`
	Points      int    `json:"points"`
	Hint        string `json:"hint,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Feedback is the human-readable rendering of a run.
type Feedback struct {
	Message     string            `json:"message"`
	Implemented []ImplementedItem `json:"implemented"`
	Unmet       []UnmetItem       `json:"unmet"`
}

// FeedbackGenerator renders summaries and results into feedback using a
// validated band table.
type FeedbackGenerator struct {
	bands []Band
}

// NewFeedbackGenerator builds a generator. A nil table selects
// DefaultBands; an invalid table is rejected.
func NewFeedbackGenerator(bands []Band) (*FeedbackGenerator, error) {
	if bands == nil {
		bands = DefaultBands
	}
	if err := ValidateBands(bands); err != nil {
		return nil, err
	}
	sorted := make([]Band, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinFraction < sorted[j].MinFraction })
	return &FeedbackGenerator{bands: sorted}, nil
}

// Generate renders one run's feedback. Results correspond to the
// definition's criteria by position. A criterion that failed or timed out
// is reported as unmet with its error, never silently dropped.
func (g *FeedbackGenerator) Generate(def *challenge.Definition, summary Summary, results []executor.CriterionResult) Feedback {
	fb := Feedback{
		Message:     g.message(summary),
		Implemented: []ImplementedItem{},
		Unmet:       []UnmetItem{},
	}

	for i, r := range results {
		if r.Status == executor.StatusCompleted && r.Implemented {
			fb.Implemented = append(fb.Implemented, ImplementedItem{
				CriterionID: r.CriterionID,
				Name:        r.Name,
				Points:      r.Points,
				Details:     r.Details,
			})
			continue
		}
		item := UnmetItem{
			CriterionID: r.CriterionID,
			Name:        r.Name,
			Points:      r.MaxPoints,
			Error:       r.Error,
		}
		if i < len(def.Criteria) {
			item.Hint = def.Criteria[i].Hint
		}
		fb.Unmet = append(fb.Unmet, item)
	}

	return fb
}

// message picks the highest band whose threshold the score fraction
// reaches. Higher scores never produce a lower band's message.
func (g *FeedbackGenerator) message(summary Summary) string {
	fraction := 0.0
	if summary.MaxScore > 0 {
		fraction = float64(summary.Score) / float64(summary.MaxScore)
	}

	msg := g.bands[0].Message
	for _, b := range g.bands {
		if fraction >= b.MinFraction {
			msg = b.Message
		}
	}
	return msg
}
