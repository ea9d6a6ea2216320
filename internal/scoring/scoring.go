// Package scoring turns criterion results into a score and pass verdict.
package scoring

import (
	"math"

	"github.com/Wollering/CTF-Assessment-Engine/internal/challenge"
	"github.com/Wollering/CTF-Assessment-Engine/internal/executor"
)

// Summary is the aggregated outcome of one assessment run.
type Summary struct {
	Score    int  `json:"score"`
	MaxScore int  `json:"maxScore"`
	Passed   bool `json:"passed"`
}

// Aggregate scores a full, ordered result list against its definition.
// Results and definition criteria correspond by position; the executor
// guarantees one terminal result per criterion. Passing is score reaching
// the definition's passing score, boundary inclusive.
func Aggregate(def *challenge.Definition, results []executor.CriterionResult) Summary {
	var score int
	if def.Mode() == challenge.ScoringWeighted {
		score = weightedScore(def, results)
	} else {
		score = strictScore(results)
	}

	return Summary{
		Score:    score,
		MaxScore: def.MaxScore(),
		Passed:   score >= def.PassingScore,
	}
}

func strictScore(results []executor.CriterionResult) int {
	total := 0
	for _, r := range results {
		total += r.Points
	}
	return total
}

// weightedScore computes each category's earned/possible fraction,
// multiplies it by the category's declared weight, and sums. A category
// with zero possible points contributes zero rather than dividing by zero.
func weightedScore(def *challenge.Definition, results []executor.CriterionResult) int {
	earned := make(map[string]int, len(def.CategoryWeights))
	possible := make(map[string]int, len(def.CategoryWeights))
	for i, c := range def.Criteria {
		possible[c.Category] += c.Points
		if i < len(results) {
			earned[c.Category] += results[i].Points
		}
	}

	var total float64
	for cat, weight := range def.CategoryWeights {
		if possible[cat] == 0 {
			continue
		}
		fraction := float64(earned[cat]) / float64(possible[cat])
		total += fraction * float64(weight)
	}
	return int(math.Round(total))
}
