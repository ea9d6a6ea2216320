package assessment

import (
	"time"

	"github.com/Wollering/CTF-Assessment-Engine/internal/executor"
	"github.com/Wollering/CTF-Assessment-Engine/internal/scoring"
)

// Result is the complete, persistable outcome of one assessment run. It
// never contains credentials; the brokered triple is dropped as soon as
// execution finishes.
type Result struct {
	AssessmentID string `json:"assessmentId" dynamodbav:"assessmentId"`
	SubjectID    string `json:"subjectId" dynamodbav:"subjectId"`
	ChallengeID  string `json:"challengeId" dynamodbav:"challengeId"`
	TenantID     string `json:"tenantId" dynamodbav:"tenantId"`

	// Timestamp is the run start in RFC 3339 UTC.
	Timestamp string `json:"timestamp" dynamodbav:"timestamp"`

	Score    int  `json:"score" dynamodbav:"score"`
	MaxScore int  `json:"maxScore" dynamodbav:"maxScore"`
	Passed   bool `json:"passed" dynamodbav:"passed"`

	Feedback scoring.Feedback           `json:"feedback" dynamodbav:"feedback"`
	Criteria []executor.CriterionResult `json:"results" dynamodbav:"results"`

	DurationMS int64 `json:"durationMs" dynamodbav:"durationMs"`
}

// Stamp formats a run start time the way Result stores it.
func Stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
