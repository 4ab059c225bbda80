package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/smilecare/internal/urgency"
)

// ScoreSymptoms runs the urgency classifier over the symptoms the patient
// described in chat.
type ScoreSymptoms struct{}

type scoreResult struct {
	Score          int      `json:"score"`
	MaxScore       int      `json:"max_score"`
	Tier           string   `json:"tier"`
	Title          string   `json:"title"`
	Recommendation string   `json:"recommendation"`
	Tips           []string `json:"tips"`
	Symptoms       []string `json:"symptoms"`
}

func (ScoreSymptoms) Name() string { return "score_symptoms" }

func (ScoreSymptoms) Description() string {
	desc := `Score the urgency of the patient's dental symptoms with the clinic's weighted checklist.
Pass the ids of every symptom the patient has confirmed. Symptoms not listed count as absent.
Returns the score, the urgency tier (low, medium, high, urgent) and the matching recommendation.
Symptom ids:`
	for _, q := range urgency.Questions() {
		desc += fmt.Sprintf("\n  %d: %s (weight %d)", q.ID, q.Text, q.Weight)
	}
	return desc
}

func (ScoreSymptoms) Parameters() json.RawMessage {
	return json.RawMessage(`{
        "type": "object",
        "properties": {
            "symptom_ids": {
                "type": "array",
                "items": {"type": "integer"},
                "description": "Ids of symptoms the patient has."
            }
        },
        "required": ["symptom_ids"]
    }`)
}

func (ScoreSymptoms) Execute(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
	var input struct {
		SymptomIDs []int `json:"symptom_ids"`
	}
	if err := decodeParams(params, &input); err != nil {
		return nil, err
	}

	answers := urgency.AnswerSet{}
	symptoms := make([]string, 0, len(input.SymptomIDs))
	for _, id := range input.SymptomIDs {
		q, ok := urgency.QuestionByID(id)
		if !ok {
			return nil, fmt.Errorf("unknown symptom id %d", id)
		}
		if answers[id] {
			continue
		}
		answers[id] = true
		symptoms = append(symptoms, q.Text)
	}

	score := urgency.Score(answers)
	info := urgency.TierForScore(score).Info()
	return json.Marshal(scoreResult{
		Score:          score,
		MaxScore:       urgency.MaxScore(),
		Tier:           info.Tier.String(),
		Title:          info.Title,
		Recommendation: info.Recommendation,
		Tips:           info.Tips,
		Symptoms:       symptoms,
	})
}
