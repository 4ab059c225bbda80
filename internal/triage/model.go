package triage

import (
	"time"

	"github.com/linnemanlabs/smilecare/internal/urgency"
)

// Status tracks where an assessment is in its lifecycle.
type Status string

const (
	// StatusAnswering means questions are still being answered
	StatusAnswering Status = "answering"

	// StatusAnalyzing means every question is answered and classification is pending
	StatusAnalyzing Status = "analyzing"

	// StatusComplete means the result is available
	StatusComplete Status = "complete"
)

// Assessment is one patient's run through the urgency quiz.
type Assessment struct {
	ID          string            `json:"id"`
	PatientID   string            `json:"patient_id"`
	Status      Status            `json:"status"`
	Current     int               `json:"current"`
	Answers     urgency.AnswerSet `json:"answers"`
	Result      *urgency.Result   `json:"result,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt time.Time         `json:"completed_at,omitzero"`
}

// Clone returns a deep copy.
func (a *Assessment) Clone() *Assessment {
	cp := *a
	if a.Answers != nil {
		cp.Answers = make(urgency.AnswerSet, len(a.Answers))
		for id, v := range a.Answers {
			cp.Answers[id] = v
		}
	}
	if a.Result != nil {
		r := *a.Result
		cp.Result = &r
	}
	return &cp
}

// Quiz rebuilds the quiz state from the persisted progress.
func (a *Assessment) Quiz() *urgency.Quiz {
	return urgency.RestoreQuiz(a.Current, a.Answers)
}

// CurrentQuestion returns the question awaiting an answer, if any.
func (a *Assessment) CurrentQuestion() (urgency.Question, bool) {
	if a.Status != StatusAnswering {
		return urgency.Question{}, false
	}
	return a.Quiz().Current()
}
