package urgency

// Question is a single weighted yes/no symptom question.
type Question struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Icon   string `json:"icon"`
	Weight int    `json:"weight"`
}

// questions is presented strictly in slice order.
var questions = []Question{
	{ID: 1, Text: "Do your gums bleed?", Icon: "🩸", Weight: 3},
	{ID: 2, Text: "Are your teeth sensitive?", Icon: "❄️", Weight: 2},
	{ID: 3, Text: "Do you have tooth pain?", Icon: "😣", Weight: 4},
	{ID: 4, Text: "Have you noticed swelling in your gums?", Icon: "🔴", Weight: 3},
	{ID: 5, Text: "Do you suffer from bad breath?", Icon: "💨", Weight: 2},
	{ID: 6, Text: "Do you feel pain when chewing?", Icon: "🍎", Weight: 3},
	{ID: 7, Text: "Do you have loose teeth?", Icon: "🦷", Weight: 4},
	{ID: 8, Text: "Do you get recurring headaches?", Icon: "🤕", Weight: 2},
}

// Questions returns a copy of the symptom questions in presentation order.
func Questions() []Question {
	out := make([]Question, len(questions))
	copy(out, questions)
	return out
}

// MaxScore is the score of an answer set with every question answered yes.
func MaxScore() int {
	total := 0
	for _, q := range questions {
		total += q.Weight
	}
	return total
}

// QuestionByID looks up a question by its ID.
func QuestionByID(id int) (Question, bool) {
	for _, q := range questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// QuestionIndex returns the position of question id in presentation order.
func QuestionIndex(id int) (int, bool) {
	for i, q := range questions {
		if q.ID == id {
			return i, true
		}
	}
	return -1, false
}
