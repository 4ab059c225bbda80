package urgency

import "errors"

var (
	// ErrQuizComplete is returned when answering a quiz that has no questions left.
	ErrQuizComplete = errors.New("quiz already complete")

	// ErrQuizIncomplete is returned when a result is requested before the final answer.
	ErrQuizIncomplete = errors.New("quiz not complete")
)

// Result is the outcome of a completed quiz.
type Result struct {
	Score int  `json:"score"`
	Tier  Tier `json:"tier"`
}

// Quiz walks the symptom questions one at a time, strictly in order.
// The zero value is a quiz at its first question.
type Quiz struct {
	current int
	answers AnswerSet
}

// RestoreQuiz rebuilds a quiz from persisted progress. Answers for questions
// at or past current are dropped.
func RestoreQuiz(current int, answers AnswerSet) *Quiz {
	if current < 0 {
		current = 0
	}
	if current > len(questions) {
		current = len(questions)
	}
	q := &Quiz{current: current, answers: make(AnswerSet, current)}
	for _, question := range questions[:current] {
		q.answers[question.ID] = answers[question.ID]
	}
	return q
}

// Current returns the question awaiting an answer. ok is false once every
// question has been answered.
func (q *Quiz) Current() (question Question, ok bool) {
	if q.current >= len(questions) {
		return Question{}, false
	}
	return questions[q.current], true
}

// Index is the zero-based position of the current question.
func (q *Quiz) Index() int { return q.current }

// Progress is the fraction of questions answered, in [0,1].
func (q *Quiz) Progress() float64 {
	return float64(q.current) / float64(len(questions))
}

// Done reports whether every question has been answered.
func (q *Quiz) Done() bool { return q.current >= len(questions) }

// Answer records the answer to the current question and advances.
func (q *Quiz) Answer(yes bool) error {
	question, ok := q.Current()
	if !ok {
		return ErrQuizComplete
	}
	if q.answers == nil {
		q.answers = make(AnswerSet, len(questions))
	}
	q.answers[question.ID] = yes
	q.current++
	return nil
}

// Answers returns a copy of the answers given so far.
func (q *Quiz) Answers() AnswerSet {
	out := make(AnswerSet, len(q.answers))
	for id, v := range q.answers {
		out[id] = v
	}
	return out
}

// Result classifies the answers. It fails until the final question is answered.
func (q *Quiz) Result() (Result, error) {
	if !q.Done() {
		return Result{}, ErrQuizIncomplete
	}
	score := Score(q.answers)
	return Result{Score: score, Tier: TierForScore(score)}, nil
}

// Reset discards all answers and returns to the first question.
func (q *Quiz) Reset() {
	q.current = 0
	q.answers = nil
}
