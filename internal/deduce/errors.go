package deduce

import (
	"fmt"

	"psp.com/arbitro-quiz/internal/quiz"
)

// AnomalyError reports score feedback that honest grading cannot produce.
// Candidate is quiz.Unresolved when every candidate had been tested.
type AnomalyError struct {
	QuestionID string
	Candidate  int
	Baseline   int
	Observed   int
	Reason     string
}

func (e *AnomalyError) Error() string {
	cand := quiz.Letter(e.Candidate)
	if cand == "" {
		cand = "-"
	}
	return fmt.Sprintf("deduction anomaly on question %s (candidate %s, s0=%d, s1=%d): %s",
		e.QuestionID, cand, e.Baseline, e.Observed, e.Reason)
}
